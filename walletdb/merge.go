// Copyright (c) 2014 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package walletdb

import (
	"encoding/json"
)

// mergeJSON deep-merges the JSON value src into dst.  When both are objects
// the keys of src are merged recursively into dst; in every other case src
// replaces dst.
func mergeJSON(dst, src []byte) ([]byte, error) {
	var oldDoc, newDoc interface{}
	if err := json.Unmarshal(dst, &oldDoc); err != nil {
		// A corrupt stored value is simply replaced.
		return src, nil
	}
	if err := json.Unmarshal(src, &newDoc); err != nil {
		return nil, err
	}

	return json.Marshal(mergeValues(oldDoc, newDoc))
}

func mergeValues(dst, src interface{}) interface{} {
	dstMap, ok := dst.(map[string]interface{})
	if !ok {
		return src
	}
	srcMap, ok := src.(map[string]interface{})
	if !ok {
		return src
	}

	for k, v := range srcMap {
		if old, ok := dstMap[k]; ok {
			dstMap[k] = mergeValues(old, v)
			continue
		}
		dstMap[k] = v
	}
	return dstMap
}
