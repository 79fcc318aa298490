package assets

import (
	"math/big"

	bCtx "github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/base/log"
	"github.com/nifty-xyz/gomarket/domain"
	"golang.org/x/xerrors"
)

type registry struct {
	contracts map[domain.Address]Contract
}

func NewRegistry() Registry {
	return &registry{contracts: map[domain.Address]Contract{}}
}

func (r *registry) Register(addr domain.Address, c Contract) {
	r.contracts[addr.ToLower()] = c
}

func (r *registry) Resolve(addr domain.Address) (Contract, bool) {
	c, ok := r.contracts[addr.ToLower()]
	return c, ok
}

func (r *registry) Probe(ctx bCtx.Ctx, addr domain.Address) Handle {
	c, ok := r.Resolve(addr)
	if !ok {
		// no executable code at the target; default to single-unit
		return &singleUnitHandle{}
	}
	if multi, isMulti := c.(MultiUnitContract); isMulti {
		supported, err := c.SupportsInterface(ctx, MultiUnitInterfaceId)
		if err != nil {
			ctx.WithFields(log.Fields{
				"err":        err,
				"collection": addr,
			}).Warn("capability probe failed, falling back to single-unit")
		} else if supported {
			return &multiUnitHandle{c: multi}
		}
	}
	if single, isSingle := c.(SingleUnitContract); isSingle {
		return &singleUnitHandle{c: single}
	}
	return &singleUnitHandle{}
}

func (r *registry) RoyaltyInfo(ctx bCtx.Ctx, addr domain.Address, tokenId domain.TokenId, salePrice *big.Int) (domain.Address, *big.Int, error) {
	c, ok := r.Resolve(addr)
	if !ok {
		return domain.EmptyAddress, nil, xerrors.Errorf("no contract at %s: %w", addr, domain.ErrExternalCall)
	}
	supported, err := c.SupportsInterface(ctx, RoyaltyInterfaceId)
	if err != nil || !supported {
		return domain.EmptyAddress, nil, xerrors.Errorf("royalty capability unsupported: %w", domain.ErrExternalCall)
	}
	rc, ok := c.(RoyaltyContract)
	if !ok {
		return domain.EmptyAddress, nil, xerrors.Errorf("royalty capability unsupported: %w", domain.ErrExternalCall)
	}
	receiver, amount, err := rc.RoyaltyInfo(ctx, tokenId, salePrice)
	if err != nil {
		return domain.EmptyAddress, nil, xerrors.Errorf("royaltyInfo reverted: %w", domain.ErrExternalCall)
	}
	return receiver, amount, nil
}

type singleUnitHandle struct {
	c SingleUnitContract // nil when the target had no code
}

func (h *singleUnitHandle) Kind() Kind { return KindSingleUnit }

func (h *singleUnitHandle) Balance(ctx bCtx.Ctx, owner domain.Address, tokenId domain.TokenId) (uint64, error) {
	if h.c == nil {
		return 0, nil
	}
	holder, err := h.c.OwnerOf(ctx, tokenId)
	if err != nil {
		return 0, nil
	}
	if holder.Equals(owner) {
		return 1, nil
	}
	return 0, nil
}

func (h *singleUnitHandle) Approved(ctx bCtx.Ctx, owner, operator domain.Address) (bool, error) {
	if h.c == nil {
		return false, nil
	}
	return h.c.IsApprovedForAll(ctx, owner, operator)
}

func (h *singleUnitHandle) Transfer(ctx bCtx.Ctx, tokenId domain.TokenId, from, to domain.Address, quantity uint64) error {
	if h.c == nil {
		return xerrors.Errorf("no contract backing asset: %w", domain.ErrTransferFailed)
	}
	if quantity != 1 {
		return domain.ErrBadQuantity
	}
	return h.c.Transfer(ctx, tokenId, from, to)
}

type multiUnitHandle struct {
	c MultiUnitContract
}

func (h *multiUnitHandle) Kind() Kind { return KindMultiUnit }

func (h *multiUnitHandle) Balance(ctx bCtx.Ctx, owner domain.Address, tokenId domain.TokenId) (uint64, error) {
	return h.c.BalanceOf(ctx, owner, tokenId)
}

func (h *multiUnitHandle) Approved(ctx bCtx.Ctx, owner, operator domain.Address) (bool, error) {
	return h.c.IsApprovedForAll(ctx, owner, operator)
}

func (h *multiUnitHandle) Transfer(ctx bCtx.Ctx, tokenId domain.TokenId, from, to domain.Address, quantity uint64) error {
	if quantity == 0 {
		return domain.ErrBadQuantity
	}
	return h.c.Transfer(ctx, tokenId, from, to, quantity)
}
