package ids

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/segmentio/ksuid"
)

const complaintPrefix = "C"

func New() string {
	return ksuid.New().String()
}

// Prefixed returns a sortable id such as "SH2Hk..." for history rows.
func Prefixed(prefix string) string {
	return prefix + ksuid.New().String()
}

func Complaint(seq int) string {
	return fmt.Sprintf("%s%03d", complaintPrefix, seq)
}

// ComplaintSeq extracts the sequence number from ids produced by Complaint.
func ComplaintSeq(id string) (int, bool) {
	if !strings.HasPrefix(id, complaintPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, complaintPrefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextComplaint returns the id following the highest sequence in existing.
func NextComplaint(existing []string) string {
	highest := 0
	for _, id := range existing {
		if n, ok := ComplaintSeq(id); ok && n > highest {
			highest = n
		}
	}
	return Complaint(highest + 1)
}
