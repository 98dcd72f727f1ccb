package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	runAddr  string
	runMode  string
	runScale string
	runSeed  int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create a run against an already-running amrfleet instance",
	RunE:  createRun,
}

func init() {
	runCmd.Flags().StringVar(&runAddr, "addr", "http://localhost:8080", "base URL of a running amrfleet instance")
	runCmd.Flags().StringVar(&runMode, "mode", "baseline", "dispatch mode: baseline or ga")
	runCmd.Flags().StringVar(&runScale, "scale", "demo", "scenario scale: mini, small, demo or large")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "scenario seed")
	rootCmd.AddCommand(runCmd)
}

func createRun(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(map[string]any{
		"mode":  runMode,
		"scale": runScale,
		"seed":  runSeed,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(runAddr+"/runs", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post run: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("create run failed: %s: %s", resp.Status, data)
	}

	fmt.Println(string(data))
	return nil
}
