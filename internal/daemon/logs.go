package daemon

import (
	"bufio"
	"os"
)

// GetLogs returns the last n newline-delimited lines of the daemon's
// log file, reading the whole file and slicing. No rotation is applied
// here; that is left to an external tool.
func GetLogs(logPath string, n int) ([]string, error) {
	f, err := os.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if n <= 0 || n > len(lines) {
		return lines, nil
	}
	return lines[len(lines)-n:], nil
}
