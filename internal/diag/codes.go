package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Semantic errors: recoverable, a placeholder is emitted.
	SemaInfo                Code = 3000
	SemaError               Code = 3001
	SemaDeleteBinding       Code = 3101
	SemaInvalidConstruct    Code = 3102
	SemaInvalidAssignTarget Code = 3103
	SemaYieldOutsideGen     Code = 3104
	SemaAwaitOutsideAsync   Code = 3105
	SemaDuplicateParam      Code = 3106
	SemaReturnOutsideFn     Code = 3107

	// Malformed input: upstream contract violations.
	IRGInfo            Code = 4000
	IRGMalformedNode   Code = 4001
	IRGUnknownNode     Code = 4002
	IRGMissingField    Code = 4003
	IRGInvalidPosition Code = 4004
	IOLoadFileError    Code = 4100

	// Type normalization.
	TypeInfo           Code = 5000
	TypeNoBaseCase     Code = 5001
	TypeUnknownAlias   Code = 5002
	TypeDuplicateAlias Code = 5003

	// Optimizer notes, never errors.
	OptInfo      Code = 6000
	OptWithheld  Code = 6001
	OptDiscarded Code = 6002
	ObsTimings   Code = 6100
)

var codeDescription = map[Code]string{
	UnknownCode:             "Unknown error",
	SemaInfo:                "Semantic information",
	SemaError:               "Semantic error",
	SemaDeleteBinding:       "Cannot delete a variable binding in strict code",
	SemaInvalidConstruct:    "Invalid construction target",
	SemaInvalidAssignTarget: "Invalid assignment target",
	SemaYieldOutsideGen:     "'yield' outside of a generator",
	SemaAwaitOutsideAsync:   "'await' outside of an async function",
	SemaDuplicateParam:      "Duplicate parameter name",
	SemaReturnOutsideFn:     "'return' outside of a function",
	IRGInfo:                 "Input information",
	IRGMalformedNode:        "Malformed syntax tree node",
	IRGUnknownNode:          "Unknown syntax tree node",
	IRGMissingField:         "Missing syntax tree field",
	IRGInvalidPosition:      "Invalid source position",
	IOLoadFileError:         "Failed to load file",
	TypeInfo:                "Type information",
	TypeNoBaseCase:          "Type alias never reaches a base case",
	TypeUnknownAlias:        "Unknown type alias",
	TypeDuplicateAlias:      "Duplicate type alias",
	OptInfo:                 "Optimizer information",
	OptWithheld:             "Optimization withheld",
	OptDiscarded:            "Optimized IR failed validation and was discarded",
	ObsTimings:              "Pipeline timings",
}

// ID returns the stable short form, e.g. SEM3101.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 4100:
		return fmt.Sprintf("IRG%04d", ic)
	case ic >= 4100 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("TYP%04d", ic)
	case ic >= 6000 && ic < 6100:
		return fmt.Sprintf("OPT%04d", ic)
	case ic >= 6100 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
