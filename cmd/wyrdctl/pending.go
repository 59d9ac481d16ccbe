package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wyrdstore/wyrd/internal/scalar"
)

// pendingInstruction is one staged assert/retract line, kept in its raw
// CLI-argument form so the pending file is plain, inspectable JSON rather
// than a binary encoding; resolveInstruction re-parses it at commit time.
type pendingInstruction struct {
	Kind string `json:"kind"` // "assert" or "retract"
	The  string `json:"the"`
	Of   string `json:"of"`
	Is   string `json:"is"`
}

func pendingPath() string {
	return filepath.Join(wyrdDir, "pending.json")
}

func loadPending() ([]pendingInstruction, error) {
	data, err := os.ReadFile(pendingPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending transaction: %w", err)
	}
	var out []pendingInstruction
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse pending transaction: %w", err)
	}
	return out, nil
}

func savePending(ins []pendingInstruction) error {
	data, err := json.MarshalIndent(ins, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pending transaction: %w", err)
	}
	if err := os.MkdirAll(wyrdDir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", wyrdDir, err)
	}
	return os.WriteFile(pendingPath(), data, 0644)
}

func appendPending(in pendingInstruction) error {
	ins, err := loadPending()
	if err != nil {
		return err
	}
	ins = append(ins, in)
	return savePending(ins)
}

func clearPending() error {
	return os.Remove(pendingPath())
}

// resolveInstruction turns a staged line back into a scalar.Instruction,
// the pure domain type internal/fact's commit pipeline consumes.
func resolveInstruction(p pendingInstruction) (scalar.Instruction, error) {
	the, err := parseAttribute(p.The)
	if err != nil {
		return scalar.Instruction{}, err
	}
	of, err := parseEntity(p.Of)
	if err != nil {
		return scalar.Instruction{}, err
	}
	is, err := parseScalar(p.Is)
	if err != nil {
		return scalar.Instruction{}, err
	}

	kind := scalar.Assert
	if p.Kind == "retract" {
		kind = scalar.Retract
	}
	return scalar.Instruction{Kind: kind, Fact: scalar.Fact{The: the, Of: of, Is: is}}, nil
}
