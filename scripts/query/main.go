package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cic2nf/internal/logger"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/rs/zerolog"
)

func main() {
	// Define command-line flags
	mode := flag.String("mode", "api", "Query mode: 'api' to query nf-api, 'direct' to query ClickHouse directly.")
	label := flag.String("label", "", "The label to query (optional in direct mode).")
	apiBase := flag.String("api", "http://localhost:8080", "nf-api base URL.")
	chAddr := flag.String("clickhouse", "localhost:9000", "ClickHouse native address.")
	chPassword := flag.String("password", "", "ClickHouse password for user 'default'.")
	table := flag.String("table", "netflow_records", "ClickHouse table written by the clickhouse sink.")
	endTimeStr := flag.String("end", "", "Only count flows starting at or before this RFC3339 time (direct mode).")
	flag.Parse()

	logger.Setup("info", "console", logger.FileOptions{})
	log := logger.Get("query")
	log.Info().Str("mode", *mode).Msg("Running query")

	switch *mode {
	case "api":
		queryViaAPI(log, *apiBase, *label)
	case "direct":
		var end time.Time
		if *endTimeStr != "" {
			var err error
			if end, err = time.Parse(time.RFC3339, *endTimeStr); err != nil {
				log.Fatal().Err(err).Msg("Invalid end time format")
			}
		}
		directQueryClickHouse(log, *chAddr, *chPassword, *table, *label, end)
	default:
		log.Fatal().Str("mode", *mode).Msg("Invalid mode. Use 'api' or 'direct'.")
	}
}

// apiPath returns the nf-api path for a label summary, or the label list
// when label is empty.
func apiPath(label string) string {
	if label == "" {
		return "/api/v1/labels"
	}
	return "/api/v1/labels/" + url.PathEscape(label) + "/summary"
}

func queryViaAPI(log zerolog.Logger, base, label string) {
	apiURL := strings.TrimSuffix(base, "/") + apiPath(label)
	log.Info().Str("url", apiURL).Msg("Sending request")

	resp, err := http.Get(apiURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Error sending request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading response body")
	}

	if resp.StatusCode != http.StatusOK {
		log.Fatal().Int("status", resp.StatusCode).Str("response", string(respBody)).Msg("API returned non-200 status code")
	}

	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, respBody, "", "  "); err != nil {
		log.Warn().Msg("Could not prettify JSON, printing raw response")
		fmt.Println(string(respBody))
		return
	}
	fmt.Println(prettyJSON.String())
}

// buildDirectQuery returns the per-label totals query and its arguments.
func buildDirectQuery(table, label string, end time.Time) (string, []any) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString("SELECT Label, SUM(Bytes) AS TotalBytes, SUM(Packets) AS TotalPackets, SUM(Flows) AS FlowCount FROM ")
	queryBuilder.WriteString(table)

	var whereClauses []string
	var args []any
	if !end.IsZero() {
		whereClauses = append(whereClauses, "Timestamp <= ?")
		args = append(args, end)
	}
	if label != "" {
		whereClauses = append(whereClauses, "Label = ?")
		args = append(args, label)
	}
	if len(whereClauses) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(whereClauses, " AND "))
	}
	queryBuilder.WriteString(" GROUP BY Label ORDER BY Label")
	return queryBuilder.String(), args
}

func directQueryClickHouse(log zerolog.Logger, addr, password, table, label string, end time.Time) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: "default",
			Password: password,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to ClickHouse")
	}
	defer conn.Close()

	query, args := buildDirectQuery(table, label, end)
	rows, err := conn.Query(context.Background(), query, args...)
	if err != nil {
		log.Fatal().Err(err).Msg("Error executing query")
	}
	defer rows.Close()

	var found bool
	for rows.Next() {
		found = true
		var (
			name         string
			totalBytes   uint64
			totalPackets uint64
			flowCount    uint64
		)
		if err := rows.Scan(&name, &totalBytes, &totalPackets, &flowCount); err != nil {
			log.Error().Err(err).Msg("Error scanning row")
			continue
		}

		fmt.Printf("Label: %s\n", name)
		fmt.Printf("  TotalBytes: %d\n", totalBytes)
		fmt.Printf("  TotalPackets: %d\n", totalPackets)
		fmt.Printf("  FlowCount: %d\n", flowCount)
		fmt.Println("---------------------")
	}

	if !found {
		log.Info().Msg("No data found for the specified criteria.")
	}
	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("An error occurred during row iteration")
	}
}
