package enbpi

import (
	"fmt"
	"math/rand"
)

// Splitter generates resampled index sequences over a training set of size
// n, together with an implied out-of-bag complement per resample. The rng
// is the only source of randomness, so identical rng state reproduces
// identical resamples.
type Splitter interface {
	Split(n, count int, rng *rand.Rand) ([][]int, error)
}

// BlockBootstrap resamples contiguous blocks of the training range,
// preserving the temporal block structure of autocorrelated series. In
// overlapping mode block start positions are drawn independently and
// uniformly from [0, n-L]. In non-overlapping mode [0, n) is partitioned
// into consecutive blocks whose order is permuted, so no start position
// repeats within one resample.
type BlockBootstrap struct {
	BlockLength int
	Overlap     bool
}

func (s BlockBootstrap) Split(n, count int, rng *rand.Rand) ([][]int, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: resample count %d must be at least 1", ErrConfiguration, count)
	}
	if s.BlockLength < 1 {
		return nil, fmt.Errorf("%w: block length %d must be at least 1", ErrConfiguration, s.BlockLength)
	}
	if s.BlockLength > n {
		return nil, fmt.Errorf("%w: block length %d exceeds training size %d", ErrConfiguration, s.BlockLength, n)
	}

	out := make([][]int, count)
	for r := 0; r < count; r++ {
		if s.Overlap {
			out[r] = s.overlapping(n, rng)
		} else {
			out[r] = s.partitioned(n, rng)
		}
	}
	return out, nil
}

func (s BlockBootstrap) overlapping(n int, rng *rand.Rand) []int {
	sample := make([]int, 0, n+s.BlockLength)
	for len(sample) < n {
		start := rng.Intn(n - s.BlockLength + 1)
		for j := 0; j < s.BlockLength; j++ {
			sample = append(sample, start+j)
		}
	}
	return sample[:n]
}

func (s BlockBootstrap) partitioned(n int, rng *rand.Rand) []int {
	blockCount := (n + s.BlockLength - 1) / s.BlockLength
	order := rng.Perm(blockCount)

	sample := make([]int, 0, n)
	for _, b := range order {
		start := b * s.BlockLength
		end := start + s.BlockLength
		if end > n {
			end = n
		}
		for j := start; j < end; j++ {
			sample = append(sample, j)
		}
	}
	return sample
}

// NaiveSplit is the plain k-fold alternative to the block bootstrap: the
// r-th resample holds every index outside fold r mod Folds, leaving the
// fold itself out-of-bag. The rng only permutes the fold visiting order.
type NaiveSplit struct {
	Folds int
}

func (s NaiveSplit) Split(n, count int, rng *rand.Rand) ([][]int, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: resample count %d must be at least 1", ErrConfiguration, count)
	}
	if s.Folds < 2 || s.Folds > n {
		return nil, fmt.Errorf("%w: fold count %d must be in [2, %d]", ErrConfiguration, s.Folds, n)
	}

	order := rng.Perm(s.Folds)
	foldSize := (n + s.Folds - 1) / s.Folds

	out := make([][]int, count)
	for r := 0; r < count; r++ {
		fold := order[r%s.Folds]
		lo := fold * foldSize
		hi := lo + foldSize
		if hi > n {
			hi = n
		}
		sample := make([]int, 0, n-(hi-lo))
		for i := 0; i < n; i++ {
			if i < lo || i >= hi {
				sample = append(sample, i)
			}
		}
		out[r] = sample
	}
	return out, nil
}

// oobMask marks the training indices absent from a resample.
func oobMask(n int, sample []int) []bool {
	inBag := make([]bool, n)
	for _, idx := range sample {
		inBag[idx] = true
	}
	oob := make([]bool, n)
	for i := 0; i < n; i++ {
		oob[i] = !inBag[i]
	}
	return oob
}
