package sui

import (
	"encoding/json"
	"fmt"
)

// TransactionBlock is the full per-transaction payload the indexer
// requests: input data, raw bytes, effects, and events.
type TransactionBlock struct {
	Digest                  string              `json:"digest"`
	Transaction             *SenderSignedData   `json:"transaction,omitempty"`
	RawTransaction          string              `json:"rawTransaction,omitempty"`
	Effects                 *TransactionEffects `json:"effects,omitempty"`
	Events                  []Event             `json:"events,omitempty"`
	TimestampMs             *Uint64             `json:"timestampMs,omitempty"`
	Checkpoint              *Uint64             `json:"checkpoint,omitempty"`
	ConfirmedLocalExecution *bool               `json:"confirmedLocalExecution,omitempty"`
}

// SenderSignedData wraps the transaction data with its signatures.
type SenderSignedData struct {
	Data         TransactionData `json:"data"`
	TxSignatures []string        `json:"txSignatures"`
}

// TransactionData is the signed transaction content.
type TransactionData struct {
	MessageVersion string          `json:"messageVersion"`
	Transaction    TransactionKind `json:"transaction"`
	Sender         string          `json:"sender"`
	GasData        GasData         `json:"gasData"`
}

// GasData names the gas payment objects and budget.
type GasData struct {
	Payment []ObjectRef `json:"payment"`
	Owner   string      `json:"owner"`
	Price   Uint64      `json:"price"`
	Budget  Uint64      `json:"budget"`
}

// TransactionKind is the node's rendering of the transaction kind.
// Programmable transactions carry inputs and a command list; system
// transactions (Genesis, ChangeEpoch, ConsensusCommitPrologue) carry
// neither.
type TransactionKind struct {
	Kind     string            `json:"kind"`
	Inputs   []CallArg         `json:"inputs,omitempty"`
	Commands []json.RawMessage `json:"transactions,omitempty"`
}

// CallArg is one programmable-transaction input.
type CallArg struct {
	Type string `json:"type"`
	// Object inputs.
	ObjectType           string `json:"objectType,omitempty"`
	ObjectID             string `json:"objectId,omitempty"`
	Version              Uint64 `json:"version,omitempty"`
	Digest               string `json:"digest,omitempty"`
	InitialSharedVersion Uint64 `json:"initialSharedVersion,omitempty"`
	Mutable              *bool  `json:"mutable,omitempty"`
	// Pure inputs.
	ValueType string          `json:"valueType,omitempty"`
	Value     json.RawMessage `json:"value,omitempty"`
}

// MoveCallCommand is the MoveCall variant of a programmable command.
type MoveCallCommand struct {
	Package       string            `json:"package"`
	Module        string            `json:"module"`
	Function      string            `json:"function"`
	TypeArguments []string          `json:"type_arguments,omitempty"`
	Arguments     []json.RawMessage `json:"arguments,omitempty"`
}

// MoveCalls extracts every MoveCall command from the transaction, in
// command order. Non-MoveCall commands are skipped.
func (k *TransactionKind) MoveCalls() ([]MoveCallCommand, error) {
	var out []MoveCallCommand
	for i, raw := range k.Commands {
		var tagged struct {
			MoveCall *MoveCallCommand `json:"MoveCall"`
		}
		if err := json.Unmarshal(raw, &tagged); err != nil {
			return nil, fmt.Errorf("decoding command %d: %w", i, err)
		}
		if tagged.MoveCall != nil {
			out = append(out, *tagged.MoveCall)
		}
	}
	return out, nil
}

// ObjectInputs returns the object-typed inputs of the transaction.
func (k *TransactionKind) ObjectInputs() []CallArg {
	var out []CallArg
	for _, in := range k.Inputs {
		if in.Type == "object" {
			out = append(out, in)
		}
	}
	return out
}
