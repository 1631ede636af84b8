package protocol

import (
	"fmt"
	"math"
)

// GenerateZadoffChu generates a Zadoff-Chu sequence of length n with root
// index root and cyclic shift parameter q - a constant-amplitude
// zero-autocorrelation sequence family well suited to preamble detection.
// root must be coprime with n and satisfy 1 <= root < n.
func GenerateZadoffChu(root, n uint32, q int) ([]Sample, error) {
	if root == 0 || root >= n {
		return nil, fmt.Errorf("protocol: root must satisfy 1 <= root < n (root=%d, n=%d)", root, n)
	}
	if gcd(root, n) != 1 {
		return nil, fmt.Errorf("protocol: root (%d) and n (%d) must be coprime", root, n)
	}

	cf := n % 2
	seq := make([]Sample, n)
	for k := uint32(0); k < n; k++ {
		kf := float64(k)
		nf := float64(n)
		uf := float64(root)
		cff := float64(cf)
		qf := float64(q)
		exponent := -math.Pi * uf * kf * (kf + cff + 2*qf) / nf
		seq[k] = complex64(complex(math.Cos(exponent), math.Sin(exponent)))
	}
	return seq, nil
}

func gcd(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
