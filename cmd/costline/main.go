// costline — automated cloud invoice processing.
// Pulls cost data per payer account, maps it to business units,
// reconciles against budgets, and writes reports with an audit trail.
package main

import "github.com/costline/costline/internal/cli"

func main() {
	cli.Execute()
}
