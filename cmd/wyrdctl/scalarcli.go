package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/wyrdstore/wyrd/internal/scalar"
)

// parseAttribute parses the "namespace/name" form gives
// every Attribute.
func parseAttribute(s string) (scalar.Attribute, error) {
	ns, name, ok := strings.Cut(s, "/")
	if !ok {
		return scalar.Attribute{}, fmt.Errorf("attribute %q must be namespace/name", s)
	}
	return scalar.NewAttribute(ns, name), nil
}

// parseEntity accepts a 64-character hex digest (an Entity's raw bytes)
// or any other string, which is hashed into a stable Entity identity.
func parseEntity(s string) (scalar.Entity, error) {
	if len(s) == 64 {
		if raw, err := hex.DecodeString(s); err == nil {
			var e scalar.Entity
			copy(e[:], raw)
			return e, nil
		}
	}
	return scalar.NewEntityFromURI(s), nil
}

// parseScalar parses a CLI --is value into a Scalar. A "kind:payload"
// prefix selects the variant (i, f, b, s, bytes, attr, entity); a bare
// value with no recognized prefix is treated as a string, the common
// case.
func parseScalar(s string) (scalar.Scalar, error) {
	kind, payload, ok := strings.Cut(s, ":")
	if !ok {
		return scalar.FromString(s), nil
	}
	switch kind {
	case "i", "int", "i64":
		n, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return scalar.Scalar{}, fmt.Errorf("parse i64 %q: %w", payload, err)
		}
		return scalar.FromI64(n), nil
	case "f", "float", "f64":
		n, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return scalar.Scalar{}, fmt.Errorf("parse f64 %q: %w", payload, err)
		}
		return scalar.FromF64(n), nil
	case "b", "bool":
		n, err := strconv.ParseBool(payload)
		if err != nil {
			return scalar.Scalar{}, fmt.Errorf("parse bool %q: %w", payload, err)
		}
		return scalar.FromBool(n), nil
	case "s", "string":
		return scalar.FromString(payload), nil
	case "bytes", "hex":
		raw, err := hex.DecodeString(payload)
		if err != nil {
			return scalar.Scalar{}, fmt.Errorf("parse hex bytes %q: %w", payload, err)
		}
		return scalar.FromBytes(raw), nil
	case "attr", "attribute":
		attr, err := parseAttribute(payload)
		if err != nil {
			return scalar.Scalar{}, err
		}
		return scalar.FromAttribute(attr), nil
	case "entity":
		ent, err := parseEntity(payload)
		if err != nil {
			return scalar.Scalar{}, err
		}
		return scalar.FromEntity(ent), nil
	default:
		// Unrecognized prefix: the colon is part of the literal string.
		return scalar.FromString(s), nil
	}
}

// formatScalar renders a Scalar back for human-readable CLI output.
func formatScalar(s scalar.Scalar) string {
	switch s.Kind {
	case scalar.KindNull:
		return "null"
	case scalar.KindBool:
		return strconv.FormatBool(s.Bool)
	case scalar.KindI64:
		return strconv.FormatInt(s.I64, 10)
	case scalar.KindF64:
		return strconv.FormatFloat(s.F64, 'g', -1, 64)
	case scalar.KindString:
		return s.Str
	case scalar.KindBytes:
		return "0x" + hex.EncodeToString(s.Bytes)
	case scalar.KindAttribute:
		return s.Attr.String()
	case scalar.KindEntity:
		return hex.EncodeToString(s.Ent[:])
	default:
		return "?"
	}
}
