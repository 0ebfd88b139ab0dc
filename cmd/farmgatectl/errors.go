package main

import "errors"

// Shared error variables for the farmgatectl command.
var (
	ErrMissingCommand   = errors.New("missing command")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrMissingFlag      = errors.New("missing required flag")
	ErrInvalidFlag      = errors.New("invalid flag provided")
	ErrTooManyArguments = errors.New("too many arguments")
	ErrConfigLoad       = errors.New("failed to load config")
	ErrConfigMarshal    = errors.New("failed to marshal config")
	ErrEncrypt          = errors.New("failed to encrypt config")
	ErrWriteOutput      = errors.New("failed to write output")
)
