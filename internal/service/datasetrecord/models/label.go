/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package models

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// RecordLabel identifies a single dataset within an observation.  The string form is the
// observation identifier followed by a dash and the dataset index, e.g. "GS-2024A-Q-1-3-5" is
// dataset 5 of observation "GS-2024A-Q-1-3".
type RecordLabel struct {
	ObservationID string `json:"observation_id"`
	Index         int    `json:"index"`
}

// NewRecordLabel creates a new label
func NewRecordLabel(observationID string, index int) RecordLabel {
	return RecordLabel{
		ObservationID: observationID,
		Index:         index,
	}
}

// ParseRecordLabel parses the string form of a label.
func ParseRecordLabel(value string) (RecordLabel, error) {
	pos := strings.LastIndex(value, "-")
	if pos <= 0 || pos == len(value)-1 {
		return RecordLabel{}, fmt.Errorf("invalid dataset label '%s': missing index", value)
	}

	index, err := strconv.Atoi(value[pos+1:])
	if err != nil {
		return RecordLabel{}, fmt.Errorf("invalid dataset label '%s': %w", value, err)
	}
	if index <= 0 {
		return RecordLabel{}, fmt.Errorf("invalid dataset label '%s': index must be positive", value)
	}

	return NewRecordLabel(value[:pos], index), nil
}

// String returns the string form of the label
func (l RecordLabel) String() string {
	return fmt.Sprintf("%s-%d", l.ObservationID, l.Index)
}

// IsZero returns true for the zero label
func (l RecordLabel) IsZero() bool {
	return l.ObservationID == "" && l.Index == 0
}

// Compare orders labels by observation identifier and then by index.
func (l RecordLabel) Compare(other RecordLabel) int {
	if c := cmp.Compare(l.ObservationID, other.ObservationID); c != 0 {
		return c
	}
	return cmp.Compare(l.Index, other.Index)
}

// Less reports whether l sorts before other.
func (l RecordLabel) Less(other RecordLabel) bool {
	return l.Compare(other) < 0
}
