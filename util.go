package main

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	mrand "math/rand"

	"github.com/google/uuid"
)

// GenerateID returns a random hex string of the given byte length
func GenerateID(byteLen int) string {
	b := make([]byte, byteLen)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateUUID returns a random UUID string for session identifiers
func GenerateUUID() string {
	return uuid.NewString()
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func randFloat() float64 {
	return mrand.Float64()
}

// round1 rounds to one decimal place to shrink broadcast frames
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
