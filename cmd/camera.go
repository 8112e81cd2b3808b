package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interview-proctor/internal/pipeline"
	"github.com/spigell/interview-proctor/internal/proctoring"
)

var cameraCmd = &cobra.Command{
	Use:   "camera [device label...]",
	Short: "Validate the enumerated camera devices and recommend one",
	RunE:  runCamera,
}

func init() {
	rootCmd.AddCommand(cameraCmd)

	cameraCmd.Flags().StringP("devices", "f", "", "yaml file with a list of {id, label} devices")
	cameraCmd.Flags().Bool("select", false, "interactively pick the camera to use")
}

// cameraResult keeps the validator's recommendation next to the operator's choice.
type cameraResult struct {
	proctoring.CameraAssessment `yaml:",inline"`
	SelectedDevice              *proctoring.Device `json:"selectedDevice,omitempty" yaml:"selectedDevice,omitempty"`
}

func runCamera(cmd *cobra.Command, args []string) error {
	logger, _ := setup()

	devices := make([]proctoring.Device, 0, len(args))
	for _, label := range args {
		devices = append(devices, proctoring.Device{Label: label})
	}
	if file, _ := cmd.Flags().GetString("devices"); file != "" {
		fromFile, err := readDevices(file)
		if err != nil {
			return err
		}
		devices = append(devices, fromFile...)
	}
	if len(devices) == 0 {
		return fmt.Errorf("no devices given")
	}

	// camera validation needs no providers
	result := cameraResult{CameraAssessment: pipeline.New(pipeline.Deps{Logger: logger}).ValidateCamera(devices)}

	if interactive, _ := cmd.Flags().GetBool("select"); interactive {
		chosen, err := selectDevice(devices, result.CameraAssessment)
		if err != nil {
			return err
		}
		result.SelectedDevice = chosen
		if proctoring.IsVirtual(chosen.Label) {
			logger.Warn("selected camera looks virtual and will block the interview", zap.String("device", chosen.Label))
		}
	}

	return printResult(cmd.OutOrStdout(), result)
}

func selectDevice(devices []proctoring.Device, result proctoring.CameraAssessment) (*proctoring.Device, error) {
	items := make([]string, 0, len(devices))
	cursor := 0
	for i, d := range devices {
		label := d.Label
		if proctoring.IsVirtual(label) {
			label += " (virtual)"
		}
		if result.RecommendedDevice != nil && d.Label == result.RecommendedDevice.Label && d.ID == result.RecommendedDevice.ID {
			label += " (recommended)"
			cursor = i
		}
		items = append(items, label)
	}

	prompt := promptui.Select{
		Label:     "Choose a camera and press ENTER",
		Items:     items,
		CursorPos: cursor,
	}
	idx, _, err := prompt.Run()
	if err != nil {
		return nil, err
	}
	chosen := devices[idx]
	return &chosen, nil
}

func readDevices(path string) ([]proctoring.Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read devices file: %w", err)
	}
	var devices []proctoring.Device
	if err := yaml.Unmarshal(data, &devices); err != nil {
		return nil, fmt.Errorf("decode devices file: %w", err)
	}
	out := devices[:0]
	for _, d := range devices {
		if strings.TrimSpace(d.Label) != "" {
			out = append(out, d)
		}
	}
	return out, nil
}
