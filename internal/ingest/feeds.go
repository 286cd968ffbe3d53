package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// LoadFeedsFile reads the curated feed list: one URL per line, blank lines
// and # comments ignored. Lines that are not http(s) URLs (such as a CSV
// header) are skipped.
func LoadFeedsFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feeds file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasPrefix(line, "http://") && !strings.HasPrefix(line, "https://") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feeds file: %w", err)
	}
	if len(urls) == 0 {
		return nil, errors.New("feeds file contains no feed URLs")
	}
	return urls, nil
}
