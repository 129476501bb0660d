// internal/controller/builder.go
package controller

import (
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/tamzrod/relayd/internal/config"
	"github.com/tamzrod/relayd/internal/link"
	lmodbus "github.com/tamzrod/relayd/internal/link/modbus"
)

// Build constructs a Controller and the link for the configured driver.
// Nothing is opened here; Start performs the handshake.
// Assumes config has already passed Validate.
func Build(c *cfg.Config, logger *slog.Logger) (*Controller, error) {
	d := c.Device
	readTimeout := time.Duration(d.ReadTimeoutMs) * time.Millisecond

	var l Link
	switch d.Driver {
	case cfg.DriverArduino:
		l = link.New(link.Config{
			Port:        d.Port,
			ReadTimeout: readTimeout,
		}, nil, logger)

	case cfg.DriverModbus:
		l = lmodbus.New(lmodbus.Config{
			Device:     d.Port,
			BaudRate:   d.Modbus.BaudRate,
			UnitID:     d.Modbus.UnitID,
			CoilOffset: d.Modbus.CoilOffset,
			Relays:     d.Relays,
			Timeout:    readTimeout,
		}, nil, logger)

	default:
		return nil, fmt.Errorf("controller: unknown driver %q", d.Driver)
	}

	return New(
		Config{
			Relays:     d.Relays,
			Interval:   time.Duration(c.Reconcile.IntervalMs) * time.Millisecond,
			CommandGap: time.Duration(c.Reconcile.CommandGapMs) * time.Millisecond,
		},
		l,
		logger,
	)
}
