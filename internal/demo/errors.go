package demo

import (
	"errors"
	"fmt"
)

// Code is the numeric status reported for a failed stage. Values follow
// the negative error-code convention of C crypto libraries.
type Code int

const (
	CodeSeedFailed   Code = -0x0034
	CodeKeyGenFailed Code = -0x4180
	CodeSignFailed   Code = -0x4300
	CodeVerifyFailed Code = -0x4380
)

func (c Code) String() string {
	return fmt.Sprintf("%d(-0x%04x)", int(c), -int(c))
}

var (
	ErrKeyMismatch   = errors.New("generated key does not match requested parameters")
	ErrSignatureSize = errors.New("signature length does not match modulus size")
	ErrPanic         = errors.New("panic in crypto provider")
)

// SeedError reports a failure to seed the random bit generator.
type SeedError struct{ Err error }

func (e *SeedError) Error() string { return "seed random: " + e.Err.Error() }
func (e *SeedError) Unwrap() error { return e.Err }
func (e *SeedError) Code() Code    { return CodeSeedFailed }

// KeyGenError reports a failure to generate the RSA keypair.
type KeyGenError struct{ Err error }

func (e *KeyGenError) Error() string { return "generate keypair: " + e.Err.Error() }
func (e *KeyGenError) Unwrap() error { return e.Err }
func (e *KeyGenError) Code() Code    { return CodeKeyGenFailed }

// SignError reports a failure to produce the signature.
type SignError struct{ Err error }

func (e *SignError) Error() string { return "sign: " + e.Err.Error() }
func (e *SignError) Unwrap() error { return e.Err }
func (e *SignError) Code() Code    { return CodeSignFailed }

// VerifyError reports a signature that does not match the message.
type VerifyError struct{ Err error }

func (e *VerifyError) Error() string { return "verify: " + e.Err.Error() }
func (e *VerifyError) Unwrap() error { return e.Err }
func (e *VerifyError) Code() Code    { return CodeVerifyFailed }

type coder interface {
	Code() Code
}

// ExitCode maps the result of Runner.Run to a process status: 0 on
// success, the stage code for stage errors, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var c coder
	if errors.As(err, &c) {
		return int(c.Code())
	}
	return 1
}
