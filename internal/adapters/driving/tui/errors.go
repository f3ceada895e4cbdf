package tui

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("tui: retrieval service is required")

// ErrMissingAnswerService is reported when an answer is requested without an answer service.
var ErrMissingAnswerService = errors.New("tui: answer service is not configured")
