package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"license-server/internal/config"
	"license-server/internal/model"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// sheetColumns is the header row expected in the target sheet.
var sheetColumns = []interface{}{"Fingerprint", "Username", "Plan", "Active", "Created", "Expires", "Last Check", "Key"}

// SheetSyncService mirrors license records into a Google Sheet, one row per
// license, matched by key fingerprint in column A.
type SheetSyncService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	log           *zap.Logger
}

// NewSheetSyncService returns nil when sync is disabled. A nil
// *SheetSyncService is a valid no-op exporter.
func NewSheetSyncService(cfg config.SheetSyncConfig, log *zap.Logger) (*SheetSyncService, error) {
	if !cfg.Enable {
		return nil, nil
	}

	ctx := context.Background()

	b, err := os.ReadFile(cfg.CredentialPath)
	if err != nil {
		return nil, fmt.Errorf("read sheet credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, b, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("load sheet credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}

	return &SheetSyncService{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		log:           log,
	}, nil
}

func licenseRow(license *model.License) []interface{} {
	lastCheck := ""
	if license.LastCheck != nil {
		lastCheck = license.LastCheck.UTC().Format(time.RFC3339)
	}
	return []interface{}{
		KeyFingerprint(license.Key),
		license.Username,
		license.Plan,
		license.Active,
		license.CreatedAt.UTC().Format(time.RFC3339),
		license.ExpiresAt.UTC().Format(time.RFC3339),
		lastCheck,
		license.Key,
	}
}

// SyncLicense updates the license's row in place, or appends it.
func (s *SheetSyncService) SyncLicense(license *model.License) error {
	if s == nil {
		return nil
	}

	fingerprint := KeyFingerprint(license.Key)
	rangeToSearch := fmt.Sprintf("%s!A2:A", s.sheetName)
	keyResp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, rangeToSearch).Do()
	if err != nil {
		return fmt.Errorf("read sheet keys: %w", err)
	}

	rowIndex := findRow(keyResp.Values, fingerprint)
	values := [][]interface{}{licenseRow(license)}

	if rowIndex > 0 {
		rangeData := fmt.Sprintf("%s!A%d:H%d", s.sheetName, rowIndex, rowIndex)
		_, err = s.service.Spreadsheets.Values.Update(
			s.spreadsheetID,
			rangeData,
			&sheets.ValueRange{Values: values},
		).ValueInputOption("RAW").Do()
	} else {
		_, err = s.service.Spreadsheets.Values.Append(
			s.spreadsheetID,
			s.sheetName+"!A2:H",
			&sheets.ValueRange{Values: values},
		).ValueInputOption("RAW").Do()
	}
	if err != nil {
		return fmt.Errorf("write sheet row: %w", err)
	}

	s.log.Debug("synced license to sheet", zap.String("fingerprint", fingerprint), zap.Bool("updated", rowIndex > 0))
	return nil
}

// BatchSyncLicenses rewrites the whole sheet from the given records.
func (s *SheetSyncService) BatchSyncLicenses(licenses []model.License) error {
	if s == nil {
		return nil
	}

	values := [][]interface{}{sheetColumns}
	for i := range licenses {
		values = append(values, licenseRow(&licenses[i]))
	}

	if _, err := s.service.Spreadsheets.Values.Clear(
		s.spreadsheetID,
		s.sheetName+"!A:H",
		&sheets.ClearValuesRequest{},
	).Do(); err != nil {
		return fmt.Errorf("clear sheet: %w", err)
	}

	if _, err := s.service.Spreadsheets.Values.Update(
		s.spreadsheetID,
		s.sheetName+"!A1:H",
		&sheets.ValueRange{Values: values},
	).ValueInputOption("RAW").Do(); err != nil {
		return fmt.Errorf("write sheet: %w", err)
	}

	s.log.Info("synced licenses to sheet", zap.Int("count", len(licenses)))
	return nil
}

// findRow returns the 1-based sheet row holding fingerprint in column A,
// given the values of A2:A, or 0 if absent.
func findRow(values [][]interface{}, fingerprint string) int {
	for i, row := range values {
		if len(row) > 0 && row[0] == fingerprint {
			return i + 2
		}
	}
	return 0
}
