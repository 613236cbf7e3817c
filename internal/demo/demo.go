// Package demo runs the RSA keygen, sign and verify walkthrough: seed a
// DRBG, generate a keypair, sign a message, verify the signature, and
// print every intermediate value. Each stage gates the next one and all
// exit paths pass through a single cleanup.
package demo

import (
	stdcrypto "crypto"
	"crypto/rsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/glinharesb/rsa-sign-demo/internal/audit"
	"github.com/glinharesb/rsa-sign-demo/internal/config"
	"github.com/glinharesb/rsa-sign-demo/internal/crypto"
	"github.com/glinharesb/rsa-sign-demo/internal/drbg"
	"github.com/glinharesb/rsa-sign-demo/internal/hsm"
)

// State is a point in the run: Init, Seeded, KeyGenerated, Signed,
// Verified, Done.
type State int

const (
	StateInit State = iota
	StateSeeded
	StateKeyGenerated
	StateSigned
	StateVerified
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSeeded:
		return "SEEDED"
	case StateKeyGenerated:
		return "KEY_GENERATED"
	case StateSigned:
		return "SIGNED"
	case StateVerified:
		return "VERIFIED"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Journal stage names.
const (
	StageSeed    = "seed"
	StageKeyGen  = "keygen"
	StageSign    = "sign"
	StageVerify  = "verify"
	StageCleanup = "cleanup"
)

// Options are the fixed inputs of one run.
type Options struct {
	KeyBits         int
	Exponent        int
	Message         []byte
	Personalization []byte
	Scheme          crypto.Scheme
	Hash            stdcrypto.Hash
}

// DefaultOptions returns the HelloWorld, 2048-bit, e=65537, PKCS#1 v1.5 run.
func DefaultOptions() Options {
	return Options{
		KeyBits:         2048,
		Exponent:        crypto.DefaultExponent,
		Message:         []byte("HelloWorld"),
		Personalization: []byte("rsa_sign_test"),
		Scheme:          crypto.SchemePKCS1v15,
		Hash:            stdcrypto.SHA256,
	}
}

// OptionsFromConfig validates the scheme and hash names in cfg.
func OptionsFromConfig(cfg config.Config) (Options, error) {
	scheme, err := crypto.ParseScheme(cfg.Scheme)
	if err != nil {
		return Options{}, err
	}
	h, err := crypto.ParseHash(cfg.Hash)
	if err != nil {
		return Options{}, err
	}
	return Options{
		KeyBits:         cfg.KeyBits,
		Exponent:        cfg.Exponent,
		Message:         []byte(cfg.Message),
		Personalization: []byte(cfg.Personalization),
		Scheme:          scheme,
		Hash:            h,
	}, nil
}

// Result describes a finished run. It carries no private key material.
// Completed is the last stage that succeeded; State is StateDone once
// cleanup has run, on every path.
type Result struct {
	RunID     string
	State     State
	Completed State
	PublicKey *rsa.PublicKey
	Signature []byte
}

// Runner drives the stages against a Provider.
type Runner struct {
	opts    Options
	hsm     hsm.Provider
	entropy io.Reader
	out     io.Writer
	journal *audit.Logger
}

// NewRunner builds a runner. entropy seeds the DRBG and is closed at
// cleanup when it implements io.Closer. journal may be nil.
func NewRunner(opts Options, provider hsm.Provider, entropy io.Reader, out io.Writer, journal *audit.Logger) *Runner {
	return &Runner{
		opts:    opts,
		hsm:     provider,
		entropy: entropy,
		out:     out,
		journal: journal,
	}
}

// session holds the resources acquired during one run.
type session struct {
	entropy io.Reader
	rng     *drbg.CTR
	key     *rsa.PrivateKey
	sig     []byte
	closed  bool
}

// close releases everything the session acquired. Safe to call twice.
func (s *session) close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.rng != nil {
		errs = append(errs, s.rng.Close())
		s.rng = nil
	}
	if c, ok := s.entropy.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	s.entropy = nil
	s.key = nil
	return errors.Join(errs...)
}

type step struct {
	stage   string
	label   string
	op      string
	reached State
	run     func(*session) error
	wrap    func(error) error
	after   func(*session)
	meta    map[string]string
}

// Run executes the stages in order and stops at the first failure, whose
// typed error is returned. Cleanup runs exactly once on every path.
func (r *Runner) Run() (res *Result, err error) {
	res = &Result{RunID: uuid.NewString(), State: StateInit, Completed: StateInit}
	log := slog.With("run_id", res.RunID)
	s := &session{entropy: r.entropy}

	defer func() {
		cerr := s.close()
		if cerr != nil {
			log.Warn("cleanup", "error", cerr)
			r.record(res.RunID, StageCleanup, audit.StatusFailed, 0, map[string]string{"error": cerr.Error()})
		} else {
			r.record(res.RunID, StageCleanup, audit.StatusOK, 0, nil)
		}
		res.State = StateDone
		log.Debug("run finished", "completed", res.Completed.String())
	}()

	for _, st := range r.steps() {
		start := time.Now()
		fmt.Fprintf(r.out, "\n  . %s...", st.label)

		if serr := guard(log, st.stage, func() error { return st.run(s) }); serr != nil {
			err = st.wrap(serr)
			code := ExitCode(err)
			fmt.Fprintf(r.out, " failed\n  ! %s returned %s: %v\n", st.op, Code(code), serr)
			r.record(res.RunID, st.stage, audit.StatusFailed, code, map[string]string{"error": serr.Error()})
			log.Debug("stage failed", "stage", st.stage, "code", code, "duration", time.Since(start))
			return res, err
		}

		fmt.Fprint(r.out, " ok\n")
		r.record(res.RunID, st.stage, audit.StatusOK, 0, st.meta)
		log.Debug("stage complete", "stage", st.stage, "duration", time.Since(start))
		res.Completed = st.reached
		res.State = st.reached
		if st.after != nil {
			st.after(s)
		}
	}

	pub := s.key.PublicKey
	res.PublicKey = &pub
	res.Signature = s.sig
	return res, nil
}

func (r *Runner) steps() []step {
	return []step{
		{
			stage:   StageSeed,
			label:   "Seeding the random number generator",
			op:      "drbg.New",
			reached: StateSeeded,
			run:     r.seed,
			wrap:    func(err error) error { return &SeedError{Err: err} },
		},
		{
			stage:   StageKeyGen,
			label:   "Generate RSA keypair",
			op:      "hsm.GenerateKey",
			reached: StateKeyGenerated,
			run:     r.generateKey,
			wrap:    func(err error) error { return &KeyGenError{Err: err} },
			after:   func(s *session) { DumpKey(r.out, s.key) },
			meta: map[string]string{
				"bits":     strconv.Itoa(r.opts.KeyBits),
				"exponent": strconv.Itoa(r.opts.Exponent),
			},
		},
		{
			stage:   StageSign,
			label:   fmt.Sprintf("RSA %s sign", r.opts.Scheme),
			op:      "hsm.Sign",
			reached: StateSigned,
			run:     r.sign,
			wrap:    func(err error) error { return &SignError{Err: err} },
			after:   func(s *session) { DumpSignature(r.out, s.sig) },
			meta: map[string]string{
				"scheme": r.opts.Scheme.String(),
				"hash":   r.opts.Hash.String(),
			},
		},
		{
			stage:   StageVerify,
			label:   fmt.Sprintf("RSA %s verify", r.opts.Scheme),
			op:      "hsm.Verify",
			reached: StateVerified,
			run:     r.verify,
			wrap:    func(err error) error { return &VerifyError{Err: err} },
		},
	}
}

func (r *Runner) seed(s *session) error {
	rng, err := drbg.New(s.entropy, r.opts.Personalization)
	if err != nil {
		return err
	}
	s.rng = rng
	return nil
}

func (r *Runner) generateKey(s *session) error {
	key, err := r.hsm.GenerateKey(s.rng, r.opts.KeyBits, r.opts.Exponent)
	if err != nil {
		return err
	}
	if key.N.BitLen() != r.opts.KeyBits || key.E != r.opts.Exponent {
		return fmt.Errorf("%w: got %d bits e=%d", ErrKeyMismatch, key.N.BitLen(), key.E)
	}
	s.key = key
	return nil
}

func (r *Runner) sign(s *session) error {
	sig, err := r.hsm.Sign(s.rng, s.key, r.opts.Scheme, r.opts.Hash, r.opts.Message)
	if err != nil {
		return err
	}
	if len(sig) != s.key.Size() {
		return fmt.Errorf("%w: %d != %d", ErrSignatureSize, len(sig), s.key.Size())
	}
	s.sig = sig
	return nil
}

func (r *Runner) verify(s *session) error {
	return r.hsm.Verify(&s.key.PublicKey, r.opts.Scheme, r.opts.Hash, r.opts.Message, s.sig)
}

func (r *Runner) record(runID, stage, status string, code int, metadata map[string]string) {
	if r.journal == nil {
		return
	}
	r.journal.Log(runID, stage, status, code, metadata)
}
