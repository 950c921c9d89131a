// Package middleware decorates a ports.SlotStore with cross-cutting
// persistence behavior: at-rest encryption and variable masking. Middlewares
// compose, innermost first:
//
//	store := middleware.NewEncryptionMiddleware(cfg)(file.New(dir))
package middleware

import "github.com/aretw0/vine/pkg/ports"

// Middleware wraps a SlotStore to add behavior.
type Middleware func(ports.SlotStore) ports.SlotStore
