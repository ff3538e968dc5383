// Package validator provides small composable validation rules.
//
//	err := validator.Apply(
//	    validator.Required("name", t.Name),
//	    validator.MaxLen("name", t.Name, 255),
//	)
//	if ve := validator.ExtractValidationErrors(err); ve.Has("name") {
//	    ...
//	}
package validator
