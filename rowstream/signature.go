package rowstream

import (
	"errors"

	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// QuerySignature uniquely identifies one cacheable request: the query text
// plus its bound parameters. Two calls with an equal signature request the
// same result.
type QuerySignature string

// Signature derives a QuerySignature from a query text and its bound
// parameters. The query text is taken verbatim; rewriting it, even just
// whitespace, could conflate distinct queries whose literals differ only in
// whitespace. Callers who want formatting-insensitive keys should build their
// queries through Selection, which renders deterministically.
func Signature(queryText string, boundArgs ...any) (QuerySignature, error) {
	if len(boundArgs) == 0 {
		return QuerySignature(queryText), nil
	}

	encodedArgs, marshalErr := jsonAPI.Marshal(boundArgs)
	if marshalErr != nil {
		return "", errors.Join(ErrValidation, marshalErr)
	}

	return QuerySignature(queryText + "|" + string(encodedArgs)), nil
}
