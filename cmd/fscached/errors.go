package main

import "errors"

var (
	errConfigFileRead = errors.New("cannot read config file")
	errConfigInvalid  = errors.New("invalid config file")
	errCacheDirEmpty  = errors.New("cache_dir cannot be empty")
	errMissingArgs    = errors.New("missing arguments")
	errUnknownCommand = errors.New("unknown command")
)
