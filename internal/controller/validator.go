package controller

import "github.com/go-playground/validator/v10"

// Shared request validator; DTOs carry the rules as struct tags.
var validate = validator.New()
