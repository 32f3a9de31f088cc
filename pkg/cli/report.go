package cli

import (
	"context"
	"fmt"
	"os"

	"reclaim/internal/core"
	"reclaim/internal/models"

	"github.com/spf13/cobra"
)

var (
	reportStatus          string
	reportName            string
	reportDescription     string
	reportMainCategory    string
	reportSubCategory     string
	reportLocation        string
	reportCurrentLocation string
	reportReportedBy      string
	reportPhotos          []string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report a lost or found item",
	//nolint:revive
	Run: func(cmd *cobra.Command, args []string) {
		if reportName == "" || reportDescription == "" {
			fmt.Fprintf(os.Stderr, "Error: --name and --description are required\n")
			os.Exit(1)
		}

		raw := models.RawItemInput{
			Status:       reportStatus,
			Name:         reportName,
			Description:  reportDescription,
			MainCategory: reportMainCategory,
			SubCategory:  reportSubCategory,
			Location:     reportLocation,
			ReportedBy:   reportReportedBy,
		}

		if reportCurrentLocation != "" {
			raw.CurrentLocation = &reportCurrentLocation
		}

		var media [][]byte

		for _, path := range reportPhotos {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to read photo %s: %v\n", path, err)
				os.Exit(1)
			}

			media = append(media, data)
		}

		svc, err := core.NewService("")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		defer func() { _ = svc.Close() }()

		item, err := svc.Report(context.Background(), raw, media)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Reported %s item: %s (id: %s)\n", item.Status, item.Name, item.ID)

		if len(item.DescriptionEmbedding) == 0 {
			fmt.Println("Note: embedding backend was unavailable; the item will be embedded lazily on the next match.")
		}
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportStatus, "status", "s", models.StatusLost, "Lost or Found")
	reportCmd.Flags().StringVarP(&reportName, "name", "n", "", "Short item name (required)")
	reportCmd.Flags().StringVarP(&reportDescription, "description", "d", "", "Detailed description (required)")
	reportCmd.Flags().StringVarP(&reportMainCategory, "category", "c", "Other", "Main category")
	reportCmd.Flags().StringVar(&reportSubCategory, "sub-category", "", "Sub-category, e.g. 'wallet'")
	reportCmd.Flags().StringVarP(&reportLocation, "location", "l", "", "Where the item was lost or found")
	reportCmd.Flags().StringVar(&reportCurrentLocation, "current-location", "", "Where the found item is kept now")
	reportCmd.Flags().StringVarP(&reportReportedBy, "reported-by", "u", "", "Reporting user id")
	reportCmd.Flags().StringArrayVarP(&reportPhotos, "photo", "p", nil, "Photo file (repeatable)")
}
