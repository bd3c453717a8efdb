package allowlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadAddressFile reads an allowlist file: one address per line, with blank
// lines and #-comments skipped. The file order is the leaf order.
func LoadAddressFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open allowlist file: %w", err)
	}
	defer func() { _ = f.Close() }()

	addresses := make([]string, 0)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addresses = append(addresses, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read allowlist file: %w", err)
	}

	return addresses, nil
}
