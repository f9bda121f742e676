// package formatter renders the login ledger in export formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotify-bff/internal/models"
	"github.com/desertthunder/spotify-bff/internal/shared"
)

// Format names an export format.
type Format string

const (
	CSV      Format = "csv"
	Markdown Format = "md"
	Text     Format = "text"
)

// ParseFormat accepts the names used by the CLI flag.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return CSV, nil
	case "md", "markdown":
		return Markdown, nil
	case "", "text", "txt":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

const timeLayout = time.RFC3339

// ExportUsersCSV renders users with columns: ID, Display Name, Email, Country, Product, Logins, First Login, Last Login
func ExportUsersCSV(users []*models.User) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Display Name", "Email", "Country", "Product", "Logins", "First Login", "Last Login"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, u := range users {
		record := []string{
			u.ID(),
			u.DisplayName(),
			u.Email(),
			u.Country(),
			u.Product(),
			strconv.Itoa(u.LoginCount()),
			u.FirstLoginAt().UTC().Format(timeLayout),
			u.LastLoginAt().UTC().Format(timeLayout),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportUsersMarkdown renders users as a Markdown table.
func ExportUsersMarkdown(users []*models.User) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Users\n\n")
	buf.WriteString(fmt.Sprintf("**Total**: %d\n\n", len(users)))

	if len(users) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| Name | ID | Product | Logins | Last Login |\n")
	buf.WriteString("|---|---|---|---|---|\n")
	for _, u := range users {
		buf.WriteString(fmt.Sprintf("| %s | `%s` | %s | %d | %s |\n",
			escapeCell(u.Name()), u.ID(), orDash(u.Product()), u.LoginCount(), u.LastLoginAt().UTC().Format(timeLayout)))
	}

	return buf.Bytes(), nil
}

// ExportUsersText renders one numbered line per user.
func ExportUsersText(users []*models.User) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Users: %d\n\n", len(users)))
	for i, u := range users {
		buf.WriteString(fmt.Sprintf("%d. %s (%s) - %d logins, last %s\n",
			i+1, u.Name(), u.ID(), u.LoginCount(), u.LastLoginAt().UTC().Format(timeLayout)))
	}

	return buf.Bytes(), nil
}

// ExportUsers renders users in format f.
func ExportUsers(users []*models.User, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return ExportUsersCSV(users)
	case Markdown:
		return ExportUsersMarkdown(users)
	case Text:
		return ExportUsersText(users)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// WriteUsersExport renders users in format f and writes them to path.
func WriteUsersExport(users []*models.User, f Format, path string) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	data, err := ExportUsers(users, f)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
