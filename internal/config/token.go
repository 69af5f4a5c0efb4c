package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ArDnath/echo/internal/errs"
	"github.com/ArDnath/echo/internal/model"
)

// Token lifetime defaults.
const (
	DefaultAccessTTL     = time.Second
	DefaultRefreshTTL    = 30 * 24 * time.Hour
	DefaultArchiveGrace  = 2 * time.Minute
	TestModeArchiveGrace time.Duration = 0
)

// TokenPolicy resolves token lifetimes from the raw overrides.
// Invalid overrides are logged and skipped in favor of the next source.
func (c *Config) TokenPolicy(log *zap.Logger) model.TokenPolicy {
	p := model.TokenPolicy{
		AccessTTL:  DefaultAccessTTL,
		RefreshTTL: DefaultRefreshTTL,
	}

	if d, ok := parseUnits(log, "OAUTH_ACCESS_TOKEN_EXPIRY_SECONDS", c.Token.AccessExpirySeconds, time.Second, false); ok {
		p.AccessTTL = d
	}

	if d, ok := parseUnits(log, "OAUTH_REFRESH_TOKEN_EXPIRY_SECONDS", c.Token.RefreshExpirySeconds, time.Second, false); ok {
		p.RefreshTTL = d
	} else if d, ok := parseUnits(log, "OAUTH_REFRESH_TOKEN_EXPIRY_DAYS", c.Token.RefreshExpiryDays, 24*time.Hour, false); ok {
		p.RefreshTTL = d
	}

	if d, ok := parseUnits(log, "OAUTH_REFRESH_TOKEN_ARCHIVE_GRACE_MS", c.Token.ArchiveGraceMillis, time.Millisecond, true); ok {
		p.ArchiveGrace = d
	} else if d, ok := parseUnits(log, "OAUTH_REFRESH_TOKEN_ARCHIVE_GRACE_SECONDS", c.Token.ArchiveGraceSeconds, time.Second, true); ok {
		p.ArchiveGrace = d
	} else if c.IsTest() {
		p.ArchiveGrace = TestModeArchiveGrace
	} else {
		p.ArchiveGrace = DefaultArchiveGrace
	}

	log.Info("token policy",
		zap.Duration("access_ttl", p.AccessTTL),
		zap.Duration("refresh_ttl", p.RefreshTTL),
		zap.Duration("archive_grace", p.ArchiveGrace),
	)
	return p
}

// parseUnits parses an integer count of unit. Empty input is silently absent.
func parseUnits(log *zap.Logger, name, raw string, unit time.Duration, allowZero bool) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err == nil && (n < 0 || (n == 0 && !allowZero)) {
		err = fmt.Errorf("out of range")
	}
	if err == nil && n > int64(1<<62)/int64(unit) {
		err = fmt.Errorf("overflows duration")
	}
	if err != nil {
		log.Warn("ignoring token setting",
			zap.String("name", name),
			zap.String("value", raw),
			zap.Error(fmt.Errorf("%w: %v", errs.ErrInvalidConfiguration, err)),
		)
		return 0, false
	}
	return time.Duration(n) * unit, true
}
