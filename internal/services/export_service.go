package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/crmscanstack/crmscan-engine/internal/metrics"
	"github.com/crmscanstack/crmscan-engine/internal/models"
	"github.com/crmscanstack/crmscan-engine/internal/utils"
)

// ExportService renders scan results as downloadable reports.
type ExportService struct {
	logger *slog.Logger
}

func NewExportService(logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{logger: logger}
}

// AuditSummaryCSV produces the one-page audit overview.
func (e *ExportService) AuditSummaryCSV(result *models.ScanResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	rows := [][]string{
		{"Metric", "Value"},
		{"Portal", result.PortalID},
		{"Generated at", result.GeneratedAt.Format("2006-01-02 15:04 UTC")},
		{"Efficiency score", strconv.Itoa(result.Efficiency.Score)},
		{"Level", result.Efficiency.Level},
		{"Limited visibility", strconv.FormatBool(result.Efficiency.HasLimitedVisibility)},
		{"Contacts analyzed", strconv.Itoa(result.Contacts.Total)},
		{"Users analyzed", strconv.Itoa(result.Users.Total)},
		{"Deals analyzed", strconv.Itoa(result.Deals.Total)},
		{"Companies analyzed", strconv.Itoa(result.Companies.Total)},
		{"Critical findings", strconv.Itoa(result.Prioritization.Summary.Critical)},
		{"Warnings", strconv.Itoa(result.Prioritization.Summary.Warning)},
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, utils.NewAppError("services.AuditSummaryCSV", "write csv", err)
	}
	metrics.ObserveExport("csv")
	return buf.Bytes(), nil
}

// IssuesCSV lists every insight with its affected example records.
func (e *ExportService) IssuesCSV(result *models.ScanResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Severity", "Urgency", "Area", "Finding", "Business impact", "Recommendation", "Affected examples"}); err != nil {
		return nil, utils.NewAppError("services.IssuesCSV", "write header", err)
	}
	previews := previewIndex(result)
	for _, item := range result.Prioritization.PrioritizedInsights {
		row := []string{
			string(item.Severity),
			string(item.Urgency),
			string(item.RelatedModule),
			item.Title,
			item.BusinessImpact,
			item.Recommendation,
			previews[item.RelatedModule],
		}
		if err := w.Write(row); err != nil {
			return nil, utils.NewAppError("services.IssuesCSV", "write row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, utils.NewAppError("services.IssuesCSV", "flush csv", err)
	}
	metrics.ObserveExport("csv")
	return buf.Bytes(), nil
}

// AuditXLSX builds the full workbook: summary, findings and affected
// objects on separate sheets.
func (e *ExportService) AuditXLSX(result *models.ScanResult) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.logger.Warn("close workbook", slog.Any("error", err))
		}
	}()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, utils.NewAppError("services.AuditXLSX", "rename sheet", err)
	}
	summaryRows := [][]any{
		{"Portal", result.PortalID},
		{"Generated at", result.GeneratedAt.Format("2006-01-02 15:04 UTC")},
		{"Efficiency score", result.Efficiency.Score},
		{"Level", result.Efficiency.Level},
		{"Limited visibility", result.Efficiency.HasLimitedVisibility},
		{"Critical findings", result.Prioritization.Summary.Critical},
		{"Warnings", result.Prioritization.Summary.Warning},
		{"Executive summary", result.Prioritization.ExecutiveSummary},
	}
	for i, row := range summaryRows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, utils.NewAppError("services.AuditXLSX", "write summary row", err)
		}
	}

	const findings = "Findings"
	if _, err := f.NewSheet(findings); err != nil {
		return nil, utils.NewAppError("services.AuditXLSX", "add findings sheet", err)
	}
	header := []any{"Severity", "Urgency", "Area", "Finding", "Business impact", "Recommendation", "Priority"}
	if err := f.SetSheetRow(findings, "A1", &header); err != nil {
		return nil, utils.NewAppError("services.AuditXLSX", "write findings header", err)
	}
	for i, item := range result.Prioritization.PrioritizedInsights {
		row := []any{
			string(item.Severity), string(item.Urgency), string(item.RelatedModule),
			item.Title, item.BusinessImpact, item.Recommendation, item.PriorityScore,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(findings, cell, &row); err != nil {
			return nil, utils.NewAppError("services.AuditXLSX", "write findings row", err)
		}
	}

	const affected = "Affected Objects"
	if _, err := f.NewSheet(affected); err != nil {
		return nil, utils.NewAppError("services.AuditXLSX", "add affected sheet", err)
	}
	objHeader := []any{"Type", "ID", "Name", "Detail", "Reason", "Link"}
	if err := f.SetSheetRow(affected, "A1", &objHeader); err != nil {
		return nil, utils.NewAppError("services.AuditXLSX", "write affected header", err)
	}
	rowIdx := 2
	for _, item := range collectPreviews(result) {
		row := []any{item.ObjectType, item.ID, item.DisplayName, item.SecondaryLabel, item.Reason, item.HubSpotURL}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		if err := f.SetSheetRow(affected, cell, &row); err != nil {
			return nil, utils.NewAppError("services.AuditXLSX", "write affected row", err)
		}
		rowIdx++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, utils.NewAppError("services.AuditXLSX", "serialize workbook", err)
	}
	metrics.ObserveExport("xlsx")
	return buf.Bytes(), nil
}

func collectPreviews(result *models.ScanResult) []models.ObjectPreview {
	var out []models.ObjectPreview
	for _, check := range []*models.CheckResult{
		result.Deals.WithoutContact, result.Deals.WithoutOwner, result.Deals.WithoutPrice, result.Deals.Inactive,
		result.Companies.WithoutDomain, result.Companies.WithoutOwner, result.Companies.WithoutPhone, result.Companies.Inactive,
	} {
		if check == nil {
			continue
		}
		out = append(out, check.Items...)
	}
	return out
}

func previewIndex(result *models.ScanResult) map[models.Module]string {
	index := make(map[models.Module]string)
	for _, item := range collectPreviews(result) {
		module := models.ModuleDeals
		if item.ObjectType == "company" {
			module = models.ModuleCompanies
		}
		if index[module] != "" {
			index[module] += "; "
		}
		index[module] += fmt.Sprintf("%s (%s)", item.DisplayName, item.Reason)
	}
	return index
}
