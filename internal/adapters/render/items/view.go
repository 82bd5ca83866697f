package items

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bnema/offline-session-cli/internal/application"
	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// staleFadeWindow is the record age at which the age label reaches its
// faintest color.
const staleFadeWindow = 7 * 24 * time.Hour

type RenderOptions struct {
	Now time.Time
}

type SessionView struct {
	State    application.SessionState
	Identity domain.Identity
	Session  domain.Session

	// HasSession is false when no session is held; Identity and Session are
	// then ignored.
	HasSession bool
}

func RenderList(collection domain.CollectionKey, result application.FetchResult, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return listView(collection, result, opts, s)
	})
}

func RenderRecord(collection domain.CollectionKey, result application.RecordResult, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return recordView(collection, result, opts, s)
	})
}

func RenderSession(view SessionView, opts RenderOptions) (string, error) {
	return run(func(s styles) string {
		return sessionView(view, opts, s)
	})
}

func listView(collection domain.CollectionKey, result application.FetchResult, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render(collectionTitle(collection)),
		s.header.Render(fmt.Sprintf("records: %d", len(result.Records))),
	}
	if result.Source == application.SourceCache {
		lines = append(lines, s.warning.Render(offlineNotice(result.Failure)))
	}

	if len(result.Records) == 0 {
		lines = append(lines, s.empty.Render("No records available."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, record := range result.Records {
		lines = append(lines, s.section.Render(recordSummary(record, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func recordView(collection domain.CollectionKey, result application.RecordResult, opts RenderOptions, s styles) string {
	record := result.Record
	lines := []string{
		s.record.Render(record.Title) + " " + s.id.Render(fmt.Sprintf("(%s/%s)", collection, record.ID)),
	}
	if result.Source == application.SourceCache {
		lines = append(lines, s.warning.Render(offlineNotice(result.Failure)))
	}
	if record.Description != "" {
		lines = append(lines, s.detail.Render(record.Description))
	}
	if record.ImageURL != "" {
		lines = append(lines, s.key.Render("image: ")+s.detail.Render(record.ImageURL))
	}
	lines = append(lines,
		s.key.Render("created: ")+s.detail.Render(formatTimestamp(record.CreatedAt, opts.Now)),
		s.key.Render("updated: ")+s.detail.Render(formatTimestamp(record.UpdatedAt, opts.Now)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func recordSummary(record domain.Record, opts RenderOptions, s styles) string {
	title := lipgloss.JoinHorizontal(lipgloss.Top,
		s.record.Render(record.Title),
		" ",
		s.id.Render("#"+record.ID),
	)
	parts := []string{title}

	if record.Description != "" {
		parts = append(parts, s.detail.Render(truncate(record.Description, 72)))
	}
	if !record.UpdatedAt.IsZero() && !opts.Now.IsZero() {
		ageStyle := lipgloss.NewStyle().Foreground(ageColor(record.UpdatedAt, opts.Now))
		parts = append(parts, ageStyle.Render("updated "+formatRelative(record.UpdatedAt, opts.Now)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func sessionView(view SessionView, opts RenderOptions, s styles) string {
	lines := []string{s.title.Render("Session")}

	if !view.HasSession {
		lines = append(lines,
			s.key.Render("state: ")+s.detail.Render(string(application.SessionUnauthenticated)),
			s.empty.Render("Not signed in. Run `ofs login`."),
		)
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	lines = append(lines, s.key.Render("state: ")+s.detail.Render(string(view.State)))

	identity := view.Identity
	lines = append(lines,
		s.key.Render("user: ")+s.record.Render(identity.DisplayName)+" "+s.id.Render("<"+identity.Email+">"),
		s.key.Render("id: ")+s.detail.Render(identity.ID),
	)
	if len(identity.Roles) > 0 {
		lines = append(lines, s.key.Render("roles: ")+s.detail.Render(strings.Join(identity.Roles, ", ")))
	}

	expiry := s.ok.Render(expiryLabel(view.Session.ExpiresAt, opts.Now))
	if !opts.Now.IsZero() && view.Session.IsExpired(opts.Now) {
		expiry = s.warning.Render(expiryLabel(view.Session.ExpiresAt, opts.Now))
	}
	lines = append(lines, s.key.Render("token: ")+expiry)

	refresh := "no refresh token"
	if view.Session.HasRefreshToken() {
		refresh = "refresh token stored"
	}
	lines = append(lines, s.key.Render("refresh: ")+s.detail.Render(refresh))

	if len(view.Session.Scopes) > 0 {
		lines = append(lines, s.key.Render("scopes: ")+s.detail.Render(strings.Join(view.Session.Scopes, " ")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func collectionTitle(collection domain.CollectionKey) string {
	name := string(collection)
	if name == "" {
		return "Records"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func offlineNotice(failure *application.RemoteFailure) string {
	if failure == nil {
		return "offline: served from cache"
	}

	switch failure.Reason {
	case application.FailureStatus:
		return fmt.Sprintf("offline: served from cache (remote returned %d)", failure.StatusCode)
	case application.FailureUnauthenticated:
		return "offline: served from cache (not signed in)"
	default:
		return fmt.Sprintf("offline: served from cache (%s)", failure.Reason)
	}
}

func expiryLabel(expiresAt, now time.Time) string {
	if expiresAt.IsZero() {
		return "expiry unknown"
	}
	if now.IsZero() {
		return "expires " + expiresAt.Format(time.RFC3339)
	}
	if !expiresAt.After(now) {
		return "expired " + formatRelative(expiresAt, now)
	}

	return "expires in " + formatDuration(expiresAt.Sub(now))
}

func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return t.Format(time.RFC3339)
	}

	return fmt.Sprintf("%s (%s)", t.Format("15:04 on 02 Jan 2006"), formatRelative(t, now))
}

func formatRelative(t, now time.Time) string {
	if t.After(now) {
		return "just now"
	}

	return formatDuration(now.Sub(t)) + " ago"
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(math.Ceil(d.Hours())), "hour")
	default:
		return plural(int(math.Ceil(d.Hours()/24)), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func truncate(text string, width int) string {
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-1]) + "…"
}

// ageColor fades from bright white for fresh records to grey at
// staleFadeWindow.
func ageColor(updatedAt, now time.Time) lipgloss.Color {
	age := now.Sub(updatedAt)
	if age < 0 {
		age = 0
	}

	return interpolateColor(staleFadeWindow.Seconds()-age.Seconds(), 0, staleFadeWindow.Seconds())
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 (faded) to 255 (bright).
	interpolated := 240.0 + (255.0-240.0)*normalized
	return lipgloss.Color(fmt.Sprintf("%d", int(interpolated)))
}
