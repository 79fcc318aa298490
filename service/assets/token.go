package assets

import (
	"math/big"

	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/domain"
	"github.com/nifty-xyz/gomarket/service/statedb"
	"golang.org/x/xerrors"
)

// ReceiverHook observes incoming asset transfers for one address. A hook
// returning an error fails the transfer; hooks are free to call back into the
// market, which is exactly the reentrancy surface the engines defend against.
type ReceiverHook interface {
	OnAssetReceived(ctx bCtx.Ctx, collection domain.Address, tokenId domain.TokenId, from, to domain.Address, quantity uint64) error
}

// RoyaltyPolicy configures the royalty capability of a reference token
// contract. Amount reported is floor(salePrice * Bps / 10000) unless Override
// is set.
type RoyaltyPolicy struct {
	Receiver domain.Address
	Bps      int64
	// Override, when set, replaces the bps computation entirely. Lets tests
	// model collections reporting absurd royalty amounts.
	Override func(tokenId domain.TokenId, salePrice *big.Int) (domain.Address, *big.Int, error)
}

func assetBucket(addr domain.Address) []byte {
	return []byte("asset:" + addr.ToLowerStr())
}

func ownerKey(tokenId domain.TokenId) []byte {
	return []byte("owner:" + tokenId.String())
}

func balanceKey(tokenId domain.TokenId, owner domain.Address) []byte {
	return []byte("balance:" + tokenId.String() + ":" + owner.ToLowerStr())
}

func approvalKey(owner, operator domain.Address) []byte {
	return []byte("approval:" + owner.ToLowerStr() + ":" + operator.ToLowerStr())
}

// SingleUnitToken is a reference single-unit asset contract with ownership
// kept in the state database, so its transfers commit and roll back together
// with market operations.
type SingleUnitToken struct {
	addr    domain.Address
	db      *statedb.DB
	hooks   map[domain.Address]ReceiverHook
	royalty *RoyaltyPolicy
}

func NewSingleUnitToken(addr domain.Address, db *statedb.DB) *SingleUnitToken {
	return &SingleUnitToken{addr: addr, db: db, hooks: map[domain.Address]ReceiverHook{}}
}

func (t *SingleUnitToken) Address() domain.Address { return t.addr }

func (t *SingleUnitToken) SetRoyalty(p *RoyaltyPolicy) { t.royalty = p }

func (t *SingleUnitToken) SetReceiverHook(addr domain.Address, hook ReceiverHook) {
	t.hooks[addr.ToLower()] = hook
}

func (t *SingleUnitToken) SupportsInterface(ctx bCtx.Ctx, id [4]byte) (bool, error) {
	switch id {
	case SingleUnitInterfaceId:
		return true, nil
	case RoyaltyInterfaceId:
		return t.royalty != nil, nil
	}
	return false, nil
}

func (t *SingleUnitToken) Mint(ctx bCtx.Ctx, tokenId domain.TokenId, owner domain.Address) error {
	return t.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(assetBucket(t.addr), ownerKey(tokenId), owner.ToLower())
	})
}

func (t *SingleUnitToken) OwnerOf(ctx bCtx.Ctx, tokenId domain.TokenId) (domain.Address, error) {
	var owner domain.Address
	err := t.db.View(func(tx *statedb.Tx) error {
		ok, err := tx.GetJSON(assetBucket(t.addr), ownerKey(tokenId), &owner)
		if err != nil {
			return err
		}
		if !ok {
			return xerrors.Errorf("token %s not minted: %w", tokenId, domain.ErrNotFound)
		}
		return nil
	})
	return owner, err
}

func (t *SingleUnitToken) SetApprovalForAll(ctx bCtx.Ctx, owner, operator domain.Address, approved bool) error {
	return t.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(assetBucket(t.addr), approvalKey(owner, operator), approved)
	})
}

func (t *SingleUnitToken) IsApprovedForAll(ctx bCtx.Ctx, owner, operator domain.Address) (bool, error) {
	approved := false
	err := t.db.View(func(tx *statedb.Tx) error {
		_, err := tx.GetJSON(assetBucket(t.addr), approvalKey(owner, operator), &approved)
		return err
	})
	return approved, err
}

func (t *SingleUnitToken) Transfer(ctx bCtx.Ctx, tokenId domain.TokenId, from, to domain.Address) error {
	return t.db.Update(func(tx *statedb.Tx) error {
		var owner domain.Address
		ok, err := tx.GetJSON(assetBucket(t.addr), ownerKey(tokenId), &owner)
		if err != nil {
			return err
		}
		if !ok || !owner.Equals(from) {
			return xerrors.Errorf("transfer of token %s: %w", tokenId, domain.ErrNotOwner)
		}
		if err := tx.PutJSON(assetBucket(t.addr), ownerKey(tokenId), to.ToLower()); err != nil {
			return err
		}
		// hook runs inside the transaction: a rejecting receiver voids the
		// ownership change, and a reentrant receiver observes it
		if hook, ok := t.hooks[to.ToLower()]; ok {
			if err := hook.OnAssetReceived(ctx, t.addr, tokenId, from, to, 1); err != nil {
				return xerrors.Errorf("receiver rejected token: %w", domain.ErrTransferFailed)
			}
		}
		return nil
	})
}

func (t *SingleUnitToken) RoyaltyInfo(ctx bCtx.Ctx, tokenId domain.TokenId, salePrice *big.Int) (domain.Address, *big.Int, error) {
	if t.royalty == nil {
		return domain.EmptyAddress, nil, xerrors.New("royalty not configured")
	}
	if t.royalty.Override != nil {
		return t.royalty.Override(tokenId, salePrice)
	}
	return t.royalty.Receiver, domain.Bps(salePrice, t.royalty.Bps), nil
}

// MultiUnitToken is the balance-and-amount reference contract.
type MultiUnitToken struct {
	addr    domain.Address
	db      *statedb.DB
	hooks   map[domain.Address]ReceiverHook
	royalty *RoyaltyPolicy
}

func NewMultiUnitToken(addr domain.Address, db *statedb.DB) *MultiUnitToken {
	return &MultiUnitToken{addr: addr, db: db, hooks: map[domain.Address]ReceiverHook{}}
}

func (t *MultiUnitToken) Address() domain.Address { return t.addr }

func (t *MultiUnitToken) SetRoyalty(p *RoyaltyPolicy) { t.royalty = p }

func (t *MultiUnitToken) SetReceiverHook(addr domain.Address, hook ReceiverHook) {
	t.hooks[addr.ToLower()] = hook
}

func (t *MultiUnitToken) SupportsInterface(ctx bCtx.Ctx, id [4]byte) (bool, error) {
	switch id {
	case MultiUnitInterfaceId:
		return true, nil
	case RoyaltyInterfaceId:
		return t.royalty != nil, nil
	}
	return false, nil
}

func (t *MultiUnitToken) Mint(ctx bCtx.Ctx, tokenId domain.TokenId, owner domain.Address, quantity uint64) error {
	return t.db.Update(func(tx *statedb.Tx) error {
		current := uint64(0)
		if _, err := tx.GetJSON(assetBucket(t.addr), balanceKey(tokenId, owner), &current); err != nil {
			return err
		}
		return tx.PutJSON(assetBucket(t.addr), balanceKey(tokenId, owner), current+quantity)
	})
}

func (t *MultiUnitToken) BalanceOf(ctx bCtx.Ctx, owner domain.Address, tokenId domain.TokenId) (uint64, error) {
	balance := uint64(0)
	err := t.db.View(func(tx *statedb.Tx) error {
		_, err := tx.GetJSON(assetBucket(t.addr), balanceKey(tokenId, owner), &balance)
		return err
	})
	return balance, err
}

func (t *MultiUnitToken) SetApprovalForAll(ctx bCtx.Ctx, owner, operator domain.Address, approved bool) error {
	return t.db.Update(func(tx *statedb.Tx) error {
		return tx.PutJSON(assetBucket(t.addr), approvalKey(owner, operator), approved)
	})
}

func (t *MultiUnitToken) IsApprovedForAll(ctx bCtx.Ctx, owner, operator domain.Address) (bool, error) {
	approved := false
	err := t.db.View(func(tx *statedb.Tx) error {
		_, err := tx.GetJSON(assetBucket(t.addr), approvalKey(owner, operator), &approved)
		return err
	})
	return approved, err
}

func (t *MultiUnitToken) Transfer(ctx bCtx.Ctx, tokenId domain.TokenId, from, to domain.Address, quantity uint64) error {
	return t.db.Update(func(tx *statedb.Tx) error {
		fromBalance := uint64(0)
		if _, err := tx.GetJSON(assetBucket(t.addr), balanceKey(tokenId, from), &fromBalance); err != nil {
			return err
		}
		if fromBalance < quantity {
			return xerrors.Errorf("transfer of %d units of token %s: %w", quantity, tokenId, domain.ErrNotOwner)
		}
		toBalance := uint64(0)
		if _, err := tx.GetJSON(assetBucket(t.addr), balanceKey(tokenId, to), &toBalance); err != nil {
			return err
		}
		if err := tx.PutJSON(assetBucket(t.addr), balanceKey(tokenId, from), fromBalance-quantity); err != nil {
			return err
		}
		if err := tx.PutJSON(assetBucket(t.addr), balanceKey(tokenId, to), toBalance+quantity); err != nil {
			return err
		}
		if hook, ok := t.hooks[to.ToLower()]; ok {
			if err := hook.OnAssetReceived(ctx, t.addr, tokenId, from, to, quantity); err != nil {
				return xerrors.Errorf("receiver rejected units: %w", domain.ErrTransferFailed)
			}
		}
		return nil
	})
}
