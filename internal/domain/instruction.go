package domain

import (
	"fmt"
)

// InstructionType identifies a posting instruction kind.
type InstructionType int

const (
	InstructionInboundAuthorisation InstructionType = iota + 1
	InstructionOutboundAuthorisation
	InstructionAuthorisationAdjustment
	InstructionSettlement
	InstructionRelease
	InstructionInboundHardSettlement
	InstructionOutboundHardSettlement
	InstructionTransfer
	InstructionCustom
)

var instructionNames = map[InstructionType]string{
	InstructionInboundAuthorisation:    "InboundAuthorisation",
	InstructionOutboundAuthorisation:   "OutboundAuthorisation",
	InstructionAuthorisationAdjustment: "AuthorisationAdjustment",
	InstructionSettlement:              "Settlement",
	InstructionRelease:                 "Release",
	InstructionInboundHardSettlement:   "InboundHardSettlement",
	InstructionOutboundHardSettlement:  "OutboundHardSettlement",
	InstructionTransfer:                "Transfer",
	InstructionCustom:                  "CustomInstruction",
}

// InstructionTypes lists every known instruction type in declaration order.
func InstructionTypes() []InstructionType {
	return []InstructionType{
		InstructionInboundAuthorisation,
		InstructionOutboundAuthorisation,
		InstructionAuthorisationAdjustment,
		InstructionSettlement,
		InstructionRelease,
		InstructionInboundHardSettlement,
		InstructionOutboundHardSettlement,
		InstructionTransfer,
		InstructionCustom,
	}
}

func (t InstructionType) String() string {
	if name, ok := instructionNames[t]; ok {
		return name
	}
	return fmt.Sprintf("InstructionType(%d)", int(t))
}

// ParseInstructionType maps a wire identifier such as "Settlement" onto the
// closed set of instruction types.
func ParseInstructionType(s string) (InstructionType, error) {
	for t, name := range instructionNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownInstructionType, s)
}

// MarshalText implements encoding.TextMarshaler.
func (t InstructionType) MarshalText() ([]byte, error) {
	if t.Class() == ClassUnknown {
		return nil, fmt.Errorf("%w: %d", ErrUnknownInstructionType, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *InstructionType) UnmarshalText(text []byte) error {
	parsed, err := ParseInstructionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// InstructionClass groups instruction types by how they may be sequenced.
type InstructionClass int

const (
	ClassUnknown InstructionClass = iota
	// ClassPrimary opens an authorisation chain.
	ClassPrimary
	// ClassSecondary extends an authorisation chain.
	ClassSecondary
	// ClassNonChainable opens a transaction that can never be extended.
	ClassNonChainable
	// ClassCustom opens or extends a custom chain.
	ClassCustom
)

func (c InstructionClass) String() string {
	switch c {
	case ClassPrimary:
		return "primary"
	case ClassSecondary:
		return "secondary"
	case ClassNonChainable:
		return "non_chainable"
	case ClassCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Class returns the sequencing class of t.
func (t InstructionType) Class() InstructionClass {
	switch t {
	case InstructionInboundAuthorisation, InstructionOutboundAuthorisation:
		return ClassPrimary
	case InstructionAuthorisationAdjustment, InstructionSettlement, InstructionRelease:
		return ClassSecondary
	case InstructionInboundHardSettlement, InstructionOutboundHardSettlement, InstructionTransfer:
		return ClassNonChainable
	case InstructionCustom:
		return ClassCustom
	default:
		return ClassUnknown
	}
}

// ChainKind classifies a whole client transaction by its first instruction.
type ChainKind int

const (
	ChainNone ChainKind = iota
	ChainAuthorisation
	ChainCustom
	ChainSingleShot
)

func (k ChainKind) String() string {
	switch k {
	case ChainAuthorisation:
		return "authorisation"
	case ChainCustom:
		return "custom"
	case ChainSingleShot:
		return "single_shot"
	default:
		return "none"
	}
}

// ChainKindOf returns the chain a transaction starting with t belongs to.
func ChainKindOf(t InstructionType) ChainKind {
	switch t.Class() {
	case ClassPrimary:
		return ChainAuthorisation
	case ClassCustom:
		return ChainCustom
	case ClassNonChainable:
		return ChainSingleShot
	default:
		return ChainNone
	}
}
