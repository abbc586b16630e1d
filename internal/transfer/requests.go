package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	sourceOrganizationColumnConstant      = "source_org"
	repositoryNameColumnConstant          = "repo_name"
	destinationOrganizationColumnConstant = "dest_org"
	noMoreRequestsMessageConstant         = "no more transfer requests"
	missingColumnsTemplateConstant        = "csv input missing required columns: %s"
	headerReadErrorTemplateConstant       = "unable to read csv header: %s"
	rowReadErrorTemplateConstant          = "unable to read csv row: %s"
	rowFieldCountTemplateConstant         = "csv row has %d fields, expected at least %d"
	emptyFieldTemplateConstant            = "csv column %s must not be empty"
	inputErrorTemplateConstant            = "input row %d: %s"
	missingColumnsJoinSeparatorConstant   = ", "
)

// ErrNoMoreRequests signals iterator exhaustion.
var ErrNoMoreRequests = errors.New(noMoreRequestsMessageConstant)

var requiredCSVColumns = []string{
	sourceOrganizationColumnConstant,
	repositoryNameColumnConstant,
	destinationOrganizationColumnConstant,
}

// InputError reports a malformed batch input row. An InputError halts
// remaining batch processing while preserving partial results.
type InputError struct {
	Row     int
	Message string
}

// Error describes the malformed input.
func (inputError InputError) Error() string {
	return fmt.Sprintf(inputErrorTemplateConstant, inputError.Row, inputError.Message)
}

// RequestIterator yields transfer requests in input order. Next returns
// ErrNoMoreRequests on exhaustion and an InputError for malformed rows.
type RequestIterator interface {
	Next() (TransferRequest, error)
}

// SliceRequestIterator iterates over an in-memory request sequence.
type SliceRequestIterator struct {
	requests []TransferRequest
	position int
}

// NewSliceRequestIterator constructs an iterator over the provided requests.
func NewSliceRequestIterator(requests []TransferRequest) *SliceRequestIterator {
	duplicatedRequests := make([]TransferRequest, len(requests))
	copy(duplicatedRequests, requests)
	return &SliceRequestIterator{requests: duplicatedRequests}
}

// Next returns the next request in input order.
func (iterator *SliceRequestIterator) Next() (TransferRequest, error) {
	if iterator.position >= len(iterator.requests) {
		return TransferRequest{}, ErrNoMoreRequests
	}

	request := iterator.requests[iterator.position]
	iterator.position++
	return request, nil
}

// CSVRequestIterator streams transfer requests from delimited input with a
// header row naming source_org, repo_name, and dest_org columns.
type CSVRequestIterator struct {
	reader        *csv.Reader
	columnIndexes map[string]int
	requiredWidth int
	rowNumber     int
}

// NewCSVRequestIterator validates the header row and prepares a streaming iterator.
func NewCSVRequestIterator(input io.Reader) (*CSVRequestIterator, error) {
	csvReader := csv.NewReader(input)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	headerRecord, headerError := csvReader.Read()
	if headerError != nil {
		return nil, InputError{Row: 1, Message: fmt.Sprintf(headerReadErrorTemplateConstant, headerError)}
	}

	columnIndexes := map[string]int{}
	for columnIndex, columnName := range headerRecord {
		columnIndexes[strings.TrimSpace(strings.ToLower(columnName))] = columnIndex
	}

	var missingColumns []string
	requiredWidth := 0
	for _, requiredColumn := range requiredCSVColumns {
		columnIndex, columnPresent := columnIndexes[requiredColumn]
		if !columnPresent {
			missingColumns = append(missingColumns, requiredColumn)
			continue
		}
		if columnIndex+1 > requiredWidth {
			requiredWidth = columnIndex + 1
		}
	}

	if len(missingColumns) > 0 {
		return nil, InputError{
			Row:     1,
			Message: fmt.Sprintf(missingColumnsTemplateConstant, strings.Join(missingColumns, missingColumnsJoinSeparatorConstant)),
		}
	}

	return &CSVRequestIterator{
		reader:        csvReader,
		columnIndexes: columnIndexes,
		requiredWidth: requiredWidth,
		rowNumber:     1,
	}, nil
}

// Next parses the next data row into a TransferRequest. Fields are trimmed;
// empty required fields and short rows surface as InputError values.
func (iterator *CSVRequestIterator) Next() (TransferRequest, error) {
	record, readError := iterator.reader.Read()
	if readError == io.EOF {
		return TransferRequest{}, ErrNoMoreRequests
	}

	iterator.rowNumber++

	if readError != nil {
		return TransferRequest{}, InputError{Row: iterator.rowNumber, Message: fmt.Sprintf(rowReadErrorTemplateConstant, readError)}
	}

	if len(record) < iterator.requiredWidth {
		return TransferRequest{}, InputError{Row: iterator.rowNumber, Message: fmt.Sprintf(rowFieldCountTemplateConstant, len(record), iterator.requiredWidth)}
	}

	fieldValues := map[string]string{}
	for _, requiredColumn := range requiredCSVColumns {
		fieldValue := strings.TrimSpace(record[iterator.columnIndexes[requiredColumn]])
		if len(fieldValue) == 0 {
			return TransferRequest{}, InputError{Row: iterator.rowNumber, Message: fmt.Sprintf(emptyFieldTemplateConstant, requiredColumn)}
		}
		fieldValues[requiredColumn] = fieldValue
	}

	return TransferRequest{
		SourceOrganization:      fieldValues[sourceOrganizationColumnConstant],
		RepositoryName:          fieldValues[repositoryNameColumnConstant],
		DestinationOrganization: fieldValues[destinationOrganizationColumnConstant],
	}, nil
}

// CollectRequests drains an iterator into a slice, surfacing the first input error.
func CollectRequests(iterator RequestIterator) ([]TransferRequest, error) {
	var requests []TransferRequest
	for {
		request, iterationError := iterator.Next()
		if errors.Is(iterationError, ErrNoMoreRequests) {
			return requests, nil
		}
		if iterationError != nil {
			return requests, iterationError
		}
		requests = append(requests, request)
	}
}
