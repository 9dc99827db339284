package asset

import (
	"fmt"
	"strings"
)

// ChatContext builds the system context handed to the chat service for rec.
// The output depends only on the record.
func ChatContext(rec Record) string {
	var b strings.Builder
	b.WriteString("You are a helpful expert handyman.\n")
	fmt.Fprintf(&b, "You are currently helping the user fix a %s %s.\n",
		orUnknown(rec.Manufacturer), orUnknown(rec.ModelNumber))
	if fault := strings.TrimSpace(rec.Diagnostics.PrimaryFaultPrediction); fault != "" {
		fmt.Fprintf(&b, "The predicted primary fault is: %s.\n", strings.TrimSuffix(fault, "."))
	}
	b.WriteString("Be concise, safety-conscious, and encouraging.")
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return s
}
