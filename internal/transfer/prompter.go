package transfer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	approvalPromptHeaderTemplateConstant = "About to transfer %d repositories:\n"
	approvalPromptLineTemplateConstant   = "  %s\n"
	approvalPromptQuestionConstant       = "Proceed? [y/N]: "
	affirmativeShortResponseConstant     = "y"
	affirmativeLongResponseConstant      = "yes"
)

// ApprovalPrompter collects operator approval before a batch mutates anything.
type ApprovalPrompter interface {
	Approve(requests []TransferRequest) (bool, error)
}

// IOApprovalPrompter reads approval responses from an io.Reader after listing
// the pending requests on the writer.
type IOApprovalPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewIOApprovalPrompter constructs a prompter from the provided reader and writer.
func NewIOApprovalPrompter(input io.Reader, output io.Writer) *IOApprovalPrompter {
	return &IOApprovalPrompter{reader: bufio.NewReader(input), writer: output}
}

// Approve lists the requests, asks for confirmation, and interprets
// affirmative responses (y/yes).
func (prompter *IOApprovalPrompter) Approve(requests []TransferRequest) (bool, error) {
	if prompter.writer != nil {
		if _, writeError := fmt.Fprintf(prompter.writer, approvalPromptHeaderTemplateConstant, len(requests)); writeError != nil {
			return false, writeError
		}
		for _, request := range requests {
			if _, writeError := fmt.Fprintf(prompter.writer, approvalPromptLineTemplateConstant, request.Describe()); writeError != nil {
				return false, writeError
			}
		}
		if _, writeError := io.WriteString(prompter.writer, approvalPromptQuestionConstant); writeError != nil {
			return false, writeError
		}
	}

	response, readError := prompter.reader.ReadString('\n')
	if readError != nil && readError != io.EOF {
		return false, readError
	}

	trimmedResponse := strings.TrimSpace(strings.ToLower(response))
	switch trimmedResponse {
	case affirmativeShortResponseConstant, affirmativeLongResponseConstant:
		return true, nil
	default:
		return false, nil
	}
}
