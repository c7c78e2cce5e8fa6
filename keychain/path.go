// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keychain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

const (
	// BIP0044Purpose is the purpose field of BIP-44 derivation paths.
	BIP0044Purpose = 44

	// ExternalBranch is the BIP-44 branch of receiving addresses.
	ExternalBranch uint32 = 0

	// InternalBranch is the BIP-44 branch of change addresses.
	InternalBranch uint32 = 1
)

// ParsePath parses a derivation path such as "m/44'/0'/0'/0/5" into child
// indexes.  A trailing ' or h marks a hardened index.  The bare path "m"
// yields no indexes.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q must start with m",
			ErrInvalidPath, path)
	}

	indexes := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := false
		switch {
		case strings.HasSuffix(part, "'"),
			strings.HasSuffix(part, "h"),
			strings.HasSuffix(part, "H"):

			hardened = true
			part = part[:len(part)-1]
		}
		if part == "" || part[0] == '+' || part[0] == '-' {
			return nil, fmt.Errorf("%w: bad element in %q",
				ErrInvalidPath, path)
		}

		i, err := strconv.ParseUint(part, 10, 32)
		if err != nil || uint32(i) >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: index %q out of range",
				ErrInvalidPath, part)
		}

		idx := uint32(i)
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		indexes = append(indexes, idx)
	}
	return indexes, nil
}

// FormatPath is the inverse of ParsePath, marking hardened indexes with '.
func FormatPath(indexes []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, idx := range indexes {
		b.WriteByte('/')
		if idx >= hdkeychain.HardenedKeyStart {
			b.WriteString(strconv.FormatUint(
				uint64(idx-hdkeychain.HardenedKeyStart), 10))
			b.WriteByte('\'')
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(idx), 10))
	}
	return b.String()
}

func bip44Path(coinType, account, branch, index uint32) string {
	return FormatPath([]uint32{
		BIP0044Purpose + hdkeychain.HardenedKeyStart,
		coinType + hdkeychain.HardenedKeyStart,
		account + hdkeychain.HardenedKeyStart,
		branch,
		index,
	})
}

// ReceivePath returns the BIP-44 path of the receiving address at index.
// Coin types are usually a network's chaincfg.Params.HDCoinType.
func ReceivePath(coinType, account, index uint32) string {
	return bip44Path(coinType, account, ExternalBranch, index)
}

// ChangePath returns the BIP-44 path of the change address at index.
func ChangePath(coinType, account, index uint32) string {
	return bip44Path(coinType, account, InternalBranch, index)
}
