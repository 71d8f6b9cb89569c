package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

func NowUTC() time.Time {
	return time.Now().UTC()
}

func Sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
