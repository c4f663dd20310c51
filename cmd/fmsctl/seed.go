package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/straye-as/fms-api/internal/domain"
	"github.com/straye-as/fms-api/internal/repository"
	"go.uber.org/zap"
)

// seedFile is the layout of a reference-data seed file
type seedFile struct {
	Countries   []domain.Country    `json:"countries"`
	Currencies  []domain.Currency   `json:"currencies"`
	Ports       []domain.Port       `json:"ports"`
	CommonCodes []domain.CommonCode `json:"commonCodes"`
	HSCodes     []domain.HSCode     `json:"hsCodes"`
}

// defaultCommonCodes are loaded when no seed file is given
var defaultCommonCodes = []domain.CommonCode{
	{GroupCode: domain.CodeGroupIncoterms, Code: "EXW", Name: "Ex Works", SortOrder: 1},
	{GroupCode: domain.CodeGroupIncoterms, Code: "FOB", Name: "Free On Board", SortOrder: 2},
	{GroupCode: domain.CodeGroupIncoterms, Code: "CIF", Name: "Cost, Insurance and Freight", SortOrder: 3},
	{GroupCode: domain.CodeGroupIncoterms, Code: "DAP", Name: "Delivered At Place", SortOrder: 4},
	{GroupCode: domain.CodeGroupIncoterms, Code: "DDP", Name: "Delivered Duty Paid", SortOrder: 5},
	{GroupCode: domain.CodeGroupContainerType, Code: "20GP", Name: "20ft General Purpose", SortOrder: 1},
	{GroupCode: domain.CodeGroupContainerType, Code: "40GP", Name: "40ft General Purpose", SortOrder: 2},
	{GroupCode: domain.CodeGroupContainerType, Code: "40HC", Name: "40ft High Cube", SortOrder: 3},
	{GroupCode: domain.CodeGroupContainerType, Code: "20RF", Name: "20ft Reefer", SortOrder: 4},
	{GroupCode: domain.CodeGroupPackageType, Code: "CTN", Name: "Carton", SortOrder: 1},
	{GroupCode: domain.CodeGroupPackageType, Code: "PLT", Name: "Pallet", SortOrder: 2},
	{GroupCode: domain.CodeGroupPackageType, Code: "PKG", Name: "Package", SortOrder: 3},
}

var seedFilePath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load reference data (countries, currencies, ports, codes)",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		data := seedFile{CommonCodes: defaultCommonCodes}
		if seedFilePath != "" {
			raw, err := os.ReadFile(seedFilePath)
			if err != nil {
				return fmt.Errorf("failed to read seed file: %w", err)
			}
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("failed to parse seed file: %w", err)
			}
		}

		refs := a.services.References
		var tally seedTally
		for i := range data.Countries {
			data.Countries[i].IsActive = true
			tally.add(refs.UpsertCountry(ctx, &data.Countries[i]))
		}
		for i := range data.Currencies {
			data.Currencies[i].IsActive = true
			tally.add(refs.UpsertCurrency(ctx, &data.Currencies[i]))
		}
		for i := range data.Ports {
			data.Ports[i].IsActive = true
			tally.add(refs.UpsertPort(ctx, &data.Ports[i]))
		}
		for i := range data.CommonCodes {
			data.CommonCodes[i].IsActive = true
			tally.add(refs.UpsertCommonCode(ctx, &data.CommonCodes[i]))
		}
		for i := range data.HSCodes {
			data.HSCodes[i].IsActive = true
			tally.add(refs.UpsertHSCode(ctx, &data.HSCodes[i]))
		}

		a.logger.Info("reference data seeded",
			zap.Int("created", tally.created),
			zap.Int("updated", tally.updated),
			zap.Int("unchanged", tally.unchanged),
			zap.Int("failed", len(tally.errs)))
		for _, err := range tally.errs {
			a.logger.Warn("seed row rejected", zap.Error(err))
		}
		fmt.Printf("created=%d updated=%d unchanged=%d failed=%d\n",
			tally.created, tally.updated, tally.unchanged, len(tally.errs))
		return nil
	}),
}

type seedTally struct {
	created, updated, unchanged int
	errs                        []error
}

func (t *seedTally) add(result repository.UpsertResult, err error) {
	if err != nil {
		t.errs = append(t.errs, err)
		return
	}
	switch result {
	case repository.UpsertCreated:
		t.created++
	case repository.UpsertUpdated:
		t.updated++
	default:
		t.unchanged++
	}
}

func init() {
	seedCmd.Flags().StringVarP(&seedFilePath, "file", "f", "", "JSON seed file")
	rootCmd.AddCommand(seedCmd)
}
