package dataxerr

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

type rpcErr struct {
	code int
	msg  string
}

func (e rpcErr) Error() string  { return e.msg }
func (e rpcErr) ErrorCode() int { return e.code }

func (suite *ErrorTestSuite) TestNew() {
	err := New(QuoteUnavailable, "pool %s has no reserve", "0xabc")
	suite.Equal(QuoteUnavailable, err.Kind())
	suite.Equal(CodeProcessingFailed, err.Code())
	suite.Equal("pool 0xabc has no reserve", err.Message())
	suite.Equal("QuoteUnavailable: pool 0xabc has no reserve", err.Error())
	suite.Nil(err.Unwrap())
	suite.False(err.ApprovalCommitted())
}

func (suite *ErrorTestSuite) TestWrapKeepsCause() {
	err := Wrap(context.DeadlineExceeded, TransactionFailed, "waiting for receipt")
	suite.True(errors.Is(err, context.DeadlineExceeded))
	suite.Contains(err.Error(), "waiting for receipt")
	suite.Equal(CodeProcessingFailed, err.Code())
}

func (suite *ErrorTestSuite) TestWrapUserRejection() {
	err := Wrap(errors.Wrap(ErrUserRejected, "sign"), TransactionFailed, "signing approve")
	suite.Equal(CodeUserRejected, err.Code())

	err = Wrap(rpcErr{code: 4001, msg: "denied"}, TransactionFailed, "submit")
	suite.Equal(CodeUserRejected, err.Code())

	err = Wrap(rpcErr{code: -32000, msg: "nonce too low"}, TransactionFailed, "submit")
	suite.Equal(CodeProcessingFailed, err.Code())
}

func (suite *ErrorTestSuite) TestWrapPropagatesInnerCode() {
	inner := Wrap(ErrUserRejected, TransactionFailed, "approve")
	outer := Wrap(inner, ApprovalFailed, "approving spender")
	suite.Equal(ApprovalFailed, outer.Kind())
	suite.Equal(CodeUserRejected, outer.Code())
	suite.True(HasKind(outer, TransactionFailed))
	suite.True(HasKind(outer, ApprovalFailed))
	suite.False(HasKind(outer, GasEstimationFailed))
}

func (suite *ErrorTestSuite) TestKindMatching() {
	err := errors.Wrap(New(InsufficientBalance, "need 10 have 5"), "stake")
	kind, ok := KindOf(err)
	suite.True(ok)
	suite.Equal(InsufficientBalance, kind)
	suite.True(errors.Is(err, New(InsufficientBalance, "")))
	suite.False(errors.Is(err, New(ApprovalFailed, "")))

	_, ok = KindOf(errors.New("plain"))
	suite.False(ok)
	suite.Equal(CodeProcessingFailed, CodeOf(errors.New("plain")))
}

func (suite *ErrorTestSuite) TestDetailsAndApprovalFlag() {
	err := New(ExceedsMaxTradeable, "too large").
		WithDetail("max", "1500").
		WithApprovalCommitted()
	suite.Equal("1500", err.Details()["max"])
	suite.True(err.ApprovalCommitted())

	wrapped := Wrap(err, TransactionFailed, "stake")
	suite.True(wrapped.ApprovalCommitted())
}
