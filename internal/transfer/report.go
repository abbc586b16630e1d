package transfer

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

const (
	reportRepositoryHeaderConstant  = "Repository"
	reportDestinationHeaderConstant = "Destination"
	reportOutcomeHeaderConstant     = "Outcome"
	reportDetailHeaderConstant      = "Detail"
	reportSummaryTemplateConstant   = "\n%d of %d transfers succeeded\n"
	reportHaltedTemplateConstant    = "Batch halted early: %s\n"
	markdownCenterSeparatorConstant = "|"
)

// WriteMarkdownSummary renders the batch result as a Markdown table followed
// by the success tally, suitable for CI logs and pull request comments.
func WriteMarkdownSummary(writer io.Writer, result BatchResult) error {
	summaryTable := tablewriter.NewWriter(writer)
	summaryTable.SetHeader([]string{
		reportRepositoryHeaderConstant,
		reportDestinationHeaderConstant,
		reportOutcomeHeaderConstant,
		reportDetailHeaderConstant,
	})
	summaryTable.SetAutoFormatHeaders(false)
	summaryTable.SetAutoWrapText(false)
	summaryTable.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	summaryTable.SetCenterSeparator(markdownCenterSeparatorConstant)

	for _, requestOutcome := range result.Outcomes {
		summaryTable.Append([]string{
			requestOutcome.Request.RepositorySlug(),
			requestOutcome.Request.DestinationOrganization,
			string(requestOutcome.Outcome.Kind),
			requestOutcome.Outcome.Detail,
		})
	}

	summaryTable.Render()

	if result.HaltedEarly {
		if _, writeError := fmt.Fprintf(writer, reportHaltedTemplateConstant, result.HaltReason); writeError != nil {
			return writeError
		}
	}

	_, writeError := fmt.Fprintf(writer, reportSummaryTemplateConstant, result.Successful, result.Total)
	return writeError
}
