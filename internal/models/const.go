package models

import (
	"github.com/charmbracelet/log"
	"github.com/homedash/homedash/internal/icons"
)

const (
	AppName = "homedash"
	AppIcon = icons.Home
)

// AppVersion is set from build info by the serve command.
var AppVersion = "dev"

// Printer is the global (pretty) printer, configured by the serve command.
var Printer *log.Logger
