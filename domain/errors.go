package domain

import "errors"

// ErrEmailTaken indicates a registration collided with an existing account.
var ErrEmailTaken = errors.New("email already registered")

// ErrTaskNotFound indicates the task does not exist in storage.
var ErrTaskNotFound = errors.New("task not found")
