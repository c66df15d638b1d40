package response

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// CheckSchema validates document against schema and returns one line per
// violation. A schema that is not valid JSON Schema yields an error; callers
// only report the result, the reply is never rejected.
func CheckSchema(schema, document string) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		errs[i] = desc.String()
	}
	return errs, nil
}
