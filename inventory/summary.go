// Copyright 2025 Morning Lavender
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"fmt"
	"strings"
)

// Text renders the summary as the plain-text body handed to the
// notification sender.
func (o OrderSummary) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Inventory order for %s\n", o.LocationName)
	fmt.Fprintf(&b, "Counted by %s on %s\n\n", o.UserName, o.SubmittedAt.Format("Jan 2, 2006 15:04 MST"))
	for _, line := range o.Lines {
		if line.Quantity != nil {
			fmt.Fprintf(&b, "- %s (current: %g)", line.ProductName, *line.Quantity)
		} else {
			fmt.Fprintf(&b, "- %s", line.ProductName)
		}
		if len(line.Suppliers) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(line.Suppliers, ", "))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%d product(s) to order\n", len(o.Lines))
	return b.String()
}
