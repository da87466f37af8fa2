// Package block defines the immutable block record and its canonical,
// cross-implementation-stable byte encoding. The hash of that encoding is a
// block's identity.
package block

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Block is an immutable record in a node's block DAG.
//
// ParentHash is empty only for genesis; every other block's ParentHash
// names its predecessor by canonical hash.
type Block struct {
	ParentHash   string        `json:"parent_hash"`
	Epoch        uint64        `json:"epoch"`
	Transactions []Transaction `json:"transactions"`
	ProposerID   string        `json:"proposer_id"`
}

// Transaction is an opaque byte bundle. The core never interprets its
// contents; it round-trips through canonical encoding as arbitrary JSON.
type Transaction = json.RawMessage

// Genesis is the shared root every node constructs identically at startup.
func Genesis() Block {
	return Block{
		ParentHash:   "",
		Epoch:        0,
		Transactions: []Transaction{},
		ProposerID:   "genesis",
	}
}

// Serialize emits the block's canonical form: a key-sorted, whitespace-free
// object over exactly {parent_hash, epoch, proposer_id, transactions}, with
// null for an absent parent_hash. encoding/json's struct-field order is not
// alphabetical and its map key sorting only applies to map values, so the
// canonical bytes are assembled by hand rather than trusted to json.Marshal
// on the struct directly — the same reasoning behind the teacher's
// hand-rolled ComputeTxRoot, which does not trust a general marshaler for a
// hash-relevant encoding either.
func (b Block) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"epoch":`)
	fmt.Fprintf(&buf, "%d", b.Epoch)

	buf.WriteString(`,"parent_hash":`)
	if b.ParentHash == "" {
		buf.WriteString("null")
	} else {
		writeJSONString(&buf, b.ParentHash)
	}

	buf.WriteString(`,"proposer_id":`)
	writeJSONString(&buf, b.ProposerID)

	buf.WriteString(`,"transactions":[`)
	for i, tx := range b.Transactions {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(canonicalizeJSON(tx))
	}
	buf.WriteString(`]}`)

	return buf.Bytes()
}

// Hash returns the lowercase-hex SHA-256 of Serialize(), a pure function of
// the block's field values: equal values produce equal bytes and equal
// hashes across implementations.
func (b Block) Hash() string {
	sum := sha256.Sum256(b.Serialize())
	return hex.EncodeToString(sum[:])
}

// Parse reconstructs a Block from canonical or ordinary JSON bytes (as
// received over the wire inside a Proposal/Vote's block_bytes). It does not
// itself verify the hash; callers compare Parse(bytes).Hash() against the
// claimed hash, as spec.md §4.6 step 4 requires.
func Parse(data []byte) (Block, error) {
	var raw struct {
		ParentHash   *string       `json:"parent_hash"`
		Epoch        uint64        `json:"epoch"`
		Transactions []Transaction `json:"transactions"`
		ProposerID   string        `json:"proposer_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Block{}, fmt.Errorf("parse block bytes: %w", err)
	}
	b := Block{
		Epoch:        raw.Epoch,
		Transactions: raw.Transactions,
		ProposerID:   raw.ProposerID,
	}
	if raw.ParentHash != nil {
		b.ParentHash = *raw.ParentHash
	}
	if b.Transactions == nil {
		b.Transactions = []Transaction{}
	}
	return b, nil
}

// writeJSONString writes s as a standard-escaped JSON string literal.
func writeJSONString(buf *bytes.Buffer, s string) {
	// json.Marshal on a bare string produces exactly the quoted, escaped
	// literal the canonical form needs, with no surrounding whitespace.
	data, _ := json.Marshal(s)
	buf.Write(data)
}

// canonicalizeJSON re-emits an arbitrary JSON value with sorted object keys
// and no whitespace, recursively, so two semantically equal transactions
// serialize identically regardless of the key order they arrived in.
func canonicalizeJSON(raw json.RawMessage) []byte {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		// Malformed fragments round-trip as their original bytes; Parse
		// will have already rejected the enclosing block by the time this
		// could matter for hash comparison.
		return raw
	}
	var buf bytes.Buffer
	canonicalizeValue(&buf, v)
	return buf.Bytes()
}

func canonicalizeValue(buf *bytes.Buffer, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			canonicalizeValue(buf, t[k])
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			canonicalizeValue(buf, e)
		}
		buf.WriteByte(']')
	case string:
		writeJSONString(buf, t)
	case nil:
		buf.WriteString("null")
	default:
		// numbers and bools: json.Marshal already renders these with no
		// fractional part for integers and no extra whitespace.
		data, _ := json.Marshal(t)
		buf.Write(data)
	}
}
