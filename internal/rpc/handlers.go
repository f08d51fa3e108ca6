package rpc

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/assetledger/config"
	"github.com/Klingon-tech/assetledger/internal/asset"
	"github.com/Klingon-tech/assetledger/internal/auth"
	"github.com/Klingon-tech/assetledger/internal/dispatch"
	"github.com/Klingon-tech/assetledger/internal/event"
	"github.com/Klingon-tech/assetledger/internal/oracle"
	"github.com/Klingon-tech/assetledger/internal/redeem"
	"github.com/Klingon-tech/assetledger/internal/voucher"
	"github.com/Klingon-tech/assetledger/pkg/types"
)

// ── Error mapping ───────────────────────────────────────────────────────

// toError maps a ledger error onto a JSON-RPC error. Unexpected errors are
// logged and reported as internal.
func (s *Server) toError(method string, err error) *Error {
	switch {
	case errors.Is(err, auth.ErrBadEnvelope):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	case errors.Is(err, auth.ErrUnauthorized),
		errors.Is(err, auth.ErrBadSignature),
		errors.Is(err, auth.ErrStaleNonce):
		return &Error{Code: CodeUnauthorized, Message: err.Error()}
	case errors.Is(err, asset.ErrTokenNotExist),
		errors.Is(err, oracle.ErrUnknownSymbol),
		errors.Is(err, redeem.ErrNotFound),
		errors.Is(err, dispatch.ErrNoOutbox):
		return &Error{Code: CodeNotFound, Message: err.Error()}
	case errors.Is(err, asset.ErrInsufficientBalance),
		errors.Is(err, voucher.ErrInsufficientPool),
		errors.Is(err, voucher.ErrInsufficientBalance):
		return &Error{Code: CodeInsufficient, Message: err.Error()}
	case dispatch.IsRejection(err):
		return &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	s.logger.Error().Err(err).Str("method", method).Msg("RPC call failed")
	return &Error{Code: CodeInternalError, Message: err.Error()}
}

// resolve parses an account reference with the dispatcher's alias table.
func (s *Server) resolve(ref string) (types.Address, *Error) {
	if ref == "" {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: "account is required"}
	}
	addr, err := s.svc.Dispatcher.Resolve(ref)
	if err != nil {
		return types.Address{}, &Error{Code: CodeInvalidParams, Message: err.Error()}
	}
	return addr, nil
}

// ── Signed calls ────────────────────────────────────────────────────────

// signedCall applies one authenticated call. The envelope payload still has
// to be decoded into the method's params.
type signedCall func(o auth.Origin, env auth.Envelope) (interface{}, error)

// signed authenticates the envelope in req.Params for req.Method and runs fn.
// The nonce is consumed even when fn fails.
func (s *Server) signed(req *Request, fn signedCall) (interface{}, *Error) {
	var env auth.Envelope
	if err := parseParams(req, &env); err != nil {
		return nil, err
	}
	origin, err := s.svc.Auth.Authenticate(req.Method, env)
	if err != nil {
		s.logger.Debug().Err(err).Str("method", req.Method).Msg("Rejected envelope")
		return nil, s.toError(req.Method, err)
	}
	result, err := fn(origin, env)
	if err != nil {
		s.logger.Debug().Err(err).Str("method", req.Method).Str("origin", origin.String()).Msg("Call rejected")
		return nil, s.toError(req.Method, err)
	}
	s.logger.Debug().Str("method", req.Method).Str("origin", origin.String()).Uint64("nonce", env.Nonce).Msg("Call applied")
	if result == nil {
		result = &SubmitResult{Method: req.Method, Caller: origin.Account, Nonce: env.Nonce}
	}
	return result, nil
}

func (s *Server) callCreate(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.CreateParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	res, err := s.svc.Dispatcher.Create(o, p)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Server) callIssue(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.IssueParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	return nil, s.svc.Dispatcher.Issue(o, p)
}

func (s *Server) callTransfer(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.TransferParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	return nil, s.svc.Dispatcher.Transfer(o, p)
}

func (s *Server) callDestroy(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.DestroyParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	return nil, s.svc.Dispatcher.Destroy(o, p)
}

func (s *Server) callRedeem(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.RedeemParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	return nil, s.svc.Dispatcher.Redeem(o, p)
}

func (s *Server) callPriceSet(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.PriceParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	id, err := s.svc.Dispatcher.SetPrice(o, p)
	if err != nil {
		return nil, err
	}
	return &PriceResult{AssetID: id, Price: p.Price}, nil
}

func (s *Server) callVoucherIssue(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.VoucherParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	return nil, s.svc.Dispatcher.VoucherIssue(o, p)
}

func (s *Server) callVoucherDestroy(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.VoucherParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	return nil, s.svc.Dispatcher.VoucherDestroy(o, p)
}

func (s *Server) callVoucherReset(o auth.Origin, _ auth.Envelope) (interface{}, error) {
	return nil, s.svc.Dispatcher.VoucherReset(o)
}

func (s *Server) callRedeemAck(o auth.Origin, env auth.Envelope) (interface{}, error) {
	var p dispatch.AckParams
	if err := env.Decode(&p); err != nil {
		return nil, err
	}
	req, err := s.svc.Dispatcher.AckRedeem(o, p)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// ── Node endpoints ──────────────────────────────────────────────────────

func (s *Server) handleNodeGetInfo(req *Request) (interface{}, *Error) {
	res := &NodeInfoResult{
		Version: config.Version,
		Network: s.svc.Network,
	}
	if g := s.svc.Genesis; g != nil {
		res.ChainID = g.ChainID
		res.ChainName = g.ChainName
		if h, err := g.Hash(); err == nil {
			res.GenesisHash = h.String()
		}
		if roots, err := g.RootAddresses(); err == nil {
			res.RootAccounts = roots
		}
	}

	reg := s.svc.Engine.Registry()
	entries, err := reg.List()
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	res.Assets = len(entries)
	if res.NextAssetID, err = reg.NextID(); err != nil {
		return nil, s.toError(req.Method, err)
	}

	res.VoucherTotal = s.svc.Vouchers.TotalSupplied()
	if res.VoucherRemaining, err = s.svc.Vouchers.Remaining(); err != nil {
		return nil, s.toError(req.Method, err)
	}
	if s.svc.Events != nil {
		res.LastEventSeq = s.svc.Events.LastSeq()
	}
	return res, nil
}

// ── Asset endpoints ─────────────────────────────────────────────────────

func (s *Server) handleAssetGetToken(req *Request) (interface{}, *Error) {
	var params AssetParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	pair, err := s.svc.Engine.Registry().Lookup(params.AssetID)
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	if pair.IsZero() {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("asset %d not found", params.AssetID)}
	}
	return &TokenResult{AssetID: params.AssetID, Pair: pair}, nil
}

func (s *Server) handleAssetList(req *Request) (interface{}, *Error) {
	entries, err := s.svc.Engine.Registry().List()
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	if entries == nil {
		entries = []asset.Entry{}
	}
	return entries, nil
}

func (s *Server) handleAssetGetAccountAsset(req *Request) (interface{}, *Error) {
	var params AccountAssetParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := s.resolve(params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	rec, err := s.svc.Engine.Ledger().Get(params.AssetID, params.TokenType, addr)
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	return &AccountAssetResult{
		AssetID:      params.AssetID,
		TokenType:    params.TokenType,
		Account:      addr,
		AccountAsset: rec,
	}, nil
}

func (s *Server) handleAssetGetHoldings(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := s.resolve(params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	holdings, err := s.svc.Engine.Ledger().Holdings(addr)
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	if holdings == nil {
		holdings = []asset.Holding{}
	}
	return &HoldingsResult{Account: addr, Holdings: holdings}, nil
}

func (s *Server) handleAssetFindBySymbol(req *Request) (interface{}, *Error) {
	var params FindSymbolParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	if params.Symbol == "" {
		return nil, &Error{Code: CodeInvalidParams, Message: "symbol is required"}
	}
	addr, rpcErr := s.resolve(params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	id, found, err := s.svc.Engine.Registry().FindBySymbol(addr, params.Symbol, params.Precision)
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	return &FindSymbolResult{Found: found, AssetID: id}, nil
}

// ── Price endpoints ─────────────────────────────────────────────────────

func (s *Server) handlePriceGet(req *Request) (interface{}, *Error) {
	var params PriceParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	if params.AssetID == nil {
		entries := s.svc.Prices.All()
		out := make([]PriceResult, 0, len(entries))
		for _, e := range entries {
			out = append(out, PriceResult{AssetID: e.Asset, Price: e.Price})
		}
		return out, nil
	}
	return &PriceResult{AssetID: *params.AssetID, Price: s.svc.Prices.PriceOf(*params.AssetID)}, nil
}

// ── Voucher endpoints ───────────────────────────────────────────────────

func (s *Server) handleVoucherGetBalance(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := s.resolve(params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	bal, err := s.svc.Vouchers.Balance(addr)
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	return &VoucherBalanceResult{Account: addr, Balance: bal}, nil
}

func (s *Server) handleVoucherGetInfo(req *Request) (interface{}, *Error) {
	remaining, err := s.svc.Vouchers.Remaining()
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	accounts, err := s.svc.Vouchers.Accounts()
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	if accounts == nil {
		accounts = []voucher.Entry{}
	}
	return &VoucherInfoResult{
		TotalSupplied: s.svc.Vouchers.TotalSupplied(),
		Remaining:     remaining,
		Accounts:      accounts,
	}, nil
}

// ── Redemption endpoints ────────────────────────────────────────────────

func (s *Server) handleRedeemPending(req *Request) (interface{}, *Error) {
	if s.svc.Outbox == nil {
		return nil, &Error{Code: CodeNotFound, Message: "redemption outbox not enabled"}
	}
	pending, err := s.svc.Outbox.Pending()
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	if pending == nil {
		pending = []redeem.Request{}
	}
	return pending, nil
}

// ── Event endpoints ─────────────────────────────────────────────────────

func (s *Server) handleEventsRecent(req *Request) (interface{}, *Error) {
	var params EventsParam
	if err := parseOptionalParams(req, &params); err != nil {
		return nil, err
	}
	kind := event.Kind(params.Kind)
	if kind != "" && !knownKind(kind) {
		return nil, &Error{Code: CodeInvalidParams, Message: fmt.Sprintf("unknown event kind %q", params.Kind)}
	}
	res := &EventsResult{Events: []event.Event{}}
	if s.svc.Events == nil {
		return res, nil
	}
	res.LastSeq = s.svc.Events.LastSeq()
	if events := s.svc.Events.Recent(params.Limit, kind); events != nil {
		res.Events = events
	}
	return res, nil
}

func knownKind(k event.Kind) bool {
	for _, known := range event.Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ── Auth endpoints ──────────────────────────────────────────────────────

func (s *Server) handleAuthGetNonce(req *Request) (interface{}, *Error) {
	var params AccountParam
	if err := parseParams(req, &params); err != nil {
		return nil, err
	}
	addr, rpcErr := s.resolve(params.Account)
	if rpcErr != nil {
		return nil, rpcErr
	}
	nonce, err := s.svc.Auth.Nonce(addr)
	if err != nil {
		return nil, s.toError(req.Method, err)
	}
	return &NonceResult{
		Account: addr,
		Nonce:   nonce,
		Next:    nonce + 1,
		Root:    s.svc.Auth.IsRootAccount(addr),
	}, nil
}
