// Command ringverify checks an LSAG ring signature read from JSON files and
// prints true or false.
//
//	ringverify -keys keys.json -sig res.json -message hello -profile legacy
//
// The exit status is 0 whenever a verdict was reached, 1 when the input is
// malformed or verification failed internally and 2 on flag misuse.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/allsmog/ringsig-go/pkg/crypto/curve"
	"github.com/allsmog/ringsig-go/pkg/crypto/lsag"
	"github.com/allsmog/ringsig-go/pkg/records"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	keys        string
	sig         string
	message     string
	curveName   string
	curveParams string
	profile     string
	digest      string
	maxIter     int
	verbose     bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("ringverify", flag.ContinueOnError)
	fs.SetOutput(stderr)

	opts := &options{}
	fs.StringVar(&opts.keys, "keys", "", "Ring key list (JSON array of prefixed hex keys)")
	fs.StringVar(&opts.sig, "sig", "", "Signature record (JSON with c_0, Y, s)")
	fs.StringVar(&opts.message, "message", "", "Signed message")
	fs.StringVar(&opts.curveName, "curve", "secp256k1", "Curve name ("+fmt.Sprint(curve.SupportedCurves())+")")
	fs.StringVar(&opts.curveParams, "curve-params", "", "Curve parameter file; overrides -curve")
	fs.StringVar(&opts.profile, "profile", "default", "Hash profile (default|legacy)")
	fs.StringVar(&opts.digest, "digest", "", "Digest override (sha256|sha3-256)")
	fs.IntVar(&opts.maxIter, "max-map-iterations", lsag.DefaultMaxMapIterations, "MapToCurve iteration cap")
	fs.BoolVar(&opts.verbose, "v", false, "Log ring ID and tag to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.keys == "" || opts.sig == "" {
		return nil, errors.New("-keys and -sig are required")
	}
	return opts, nil
}

// config resolves the profile and its overrides
func (o *options) config() (lsag.Config, error) {
	cfg, err := lsag.ConfigForProfile(o.profile)
	if err != nil {
		return cfg, err
	}
	if o.digest != "" {
		if cfg.Digest, err = lsag.ParseDigest(o.digest); err != nil {
			return cfg, err
		}
	}
	if o.maxIter <= 0 {
		return cfg, fmt.Errorf("-max-map-iterations must be positive, got %d", o.maxIter)
	}
	cfg.MaxMapIterations = o.maxIter
	return cfg, nil
}

func (o *options) curve() (curve.Curve, error) {
	if o.curveParams != "" {
		return records.LoadCurve(o.curveParams)
	}
	return curve.FromName(o.curveName)
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "ringverify: ", 0)

	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			logger.Println(err)
		}
		return exitUsage
	}

	cfg, err := opts.config()
	if err != nil {
		logger.Println(err)
		return exitUsage
	}

	crv, err := opts.curve()
	if err != nil {
		logger.Printf("Failed to set up curve: %v", err)
		return exitError
	}

	verifier := lsag.NewVerifier(crv, cfg)

	ring, err := records.LoadRing(opts.keys, verifier.Hasher())
	if err != nil {
		logger.Printf("Failed to load ring: %v", err)
		return exitError
	}

	sig, err := records.LoadSignature(opts.sig, crv)
	if err != nil {
		logger.Printf("Failed to load signature: %v", err)
		return exitError
	}

	result, err := verifier.Check([]byte(opts.message), ring, sig)
	if err != nil {
		logger.Printf("Verification failed: %v", err)
		return exitError
	}

	if opts.verbose {
		logger.Printf("curve=%s config=%s ring=%s tag=%s", crv.Name(), cfg, result.RingID, result.Tag)
	}

	fmt.Fprintln(stdout, result.Valid)
	return exitOK
}
