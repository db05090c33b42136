package service

import (
	"github.com/okian/fantasycricket/internal/adapters/repository"
	"github.com/okian/fantasycricket/internal/domain/model"
)

// Service-level failures.
var (
	ErrInvalidRequest = model.NewReason(model.ErrInvalidInput, "invalid_input", "invalid request")
	ErrInvalidLimit   = model.NewReason(model.ErrInvalidInput, "invalid_limit", "limit is out of range")
	ErrSeedImmutable  = model.NewReason(model.ErrPrecondition, "seed_immutable", "seed players cannot be changed or deleted")
	ErrPlayerInUse    = repository.ErrPlayerInUse
)
