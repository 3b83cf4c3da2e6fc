package curve

import (
	"fmt"
	"math/big"
	"strings"
)

// ToyParams returns a prime-order curve small enough to enumerate:
// y² = x³ + x + 28 over F_10007, G = (2, 5425), 9851 points. It offers no
// security and exists for fixtures and demos.
func ToyParams() Params {
	return Params{
		Name: "toy",
		P:    big.NewInt(10007),
		A:    big.NewInt(1),
		B:    big.NewInt(28),
		Gx:   big.NewInt(2),
		Gy:   big.NewInt(5425),
		N:    big.NewInt(9851),
	}
}

// FromName returns a Curve implementation that matches the provided name.
func FromName(name string) (Curve, error) {
	switch strings.ToLower(name) {
	case "secp256k1", "k256":
		return NewSecp256k1(), nil
	case "toy":
		return NewWeierstrass(ToyParams())
	default:
		return nil, fmt.Errorf("unsupported curve: %s", name)
	}
}

// FromParams returns a curve for operator supplied constants. Parameters
// equal to secp256k1 get the btcec backend.
func FromParams(params Params) (Curve, error) {
	k := secp256k1Params
	if params.P != nil && params.A != nil && params.B != nil && params.Gx != nil && params.Gy != nil && params.N != nil &&
		params.P.Cmp(k.P) == 0 && params.A.Sign() == 0 && params.B.Cmp(k.B) == 0 &&
		params.Gx.Cmp(k.Gx) == 0 && params.Gy.Cmp(k.Gy) == 0 && params.N.Cmp(k.N) == 0 {
		return NewSecp256k1(), nil
	}
	return NewWeierstrass(params)
}

// SupportedCurves lists the curve identifiers understood by FromName.
func SupportedCurves() []string {
	return []string{"secp256k1", "toy"}
}
