package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/stex/backend/internal/weights"
)

// weightsCmd represents the weights command
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "종합점수 가중치 관리",
	Long: `stex.app_config 의 score_weights 를 조회/내보내기/가져오기/초기화합니다.

Subcommands:
  show    - 현재 적용 가중치 (기본값 병합 결과)
  export  - YAML 파일로 내보내기
  import  - YAML 파일에서 가져오기 (누락 키는 기본값)
  reset   - 기본값으로 초기화

Example:
  go run ./cmd/stex weights show
  go run ./cmd/stex weights export --file weights.yaml
  go run ./cmd/stex weights import --file weights.yaml`,
}

var (
	weightsFile string

	weightsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "현재 가중치 출력",
		RunE:  runWeightsShow,
	}

	weightsExportCmd = &cobra.Command{
		Use:   "export",
		Short: "YAML 파일로 내보내기",
		RunE:  runWeightsExport,
	}

	weightsImportCmd = &cobra.Command{
		Use:   "import",
		Short: "YAML 파일에서 가져오기",
		RunE:  runWeightsImport,
	}

	weightsResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "기본값으로 초기화",
		RunE:  runWeightsReset,
	}
)

func init() {
	rootCmd.AddCommand(weightsCmd)
	weightsCmd.AddCommand(weightsShowCmd)
	weightsCmd.AddCommand(weightsExportCmd)
	weightsCmd.AddCommand(weightsImportCmd)
	weightsCmd.AddCommand(weightsResetCmd)

	weightsExportCmd.Flags().StringVar(&weightsFile, "file", "", "YAML 파일 경로")
	weightsImportCmd.Flags().StringVar(&weightsFile, "file", "", "YAML 파일 경로")
	_ = weightsExportCmd.MarkFlagRequired("file")
	_ = weightsImportCmd.MarkFlagRequired("file")
}

func runWeightsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.weights.Load(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(os.Stdout, cfg)
	}

	hash, err := weights.Hash(cfg)
	if err != nil {
		return err
	}
	printHeader(os.Stdout, "Score Weights", [2]string{"Hash", shortHash(hash)})
	return weights.ExportYAML(os.Stdout, cfg)
}

func runWeightsExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := a.weights.Load(cmd.Context())
	if err != nil {
		return err
	}

	if err := writeWeightsFile(weightsFile, cfg); err != nil {
		return err
	}

	fmt.Printf("✅ Weights exported to %s\n", weightsFile)
	return nil
}

// writeWeightsFile reports a failed close, since that is where buffered writes surface
func writeWeightsFile(path string, cfg weights.Config) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	return weights.ExportYAML(f, cfg)
}

func runWeightsImport(cmd *cobra.Command, args []string) error {
	cfg, err := weights.LoadFile(weightsFile)
	if err != nil {
		return fmt.Errorf("load %s: %w", weightsFile, err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.weights.SaveConfig(cmd.Context(), cfg); err != nil {
		return err
	}

	hash, _ := weights.Hash(cfg)
	fmt.Printf("✅ Weights imported from %s (hash %s)\n", weightsFile, shortHash(hash))
	return nil
}

func runWeightsReset(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.weights.Reset(cmd.Context()); err != nil {
		return err
	}

	fmt.Println("✅ Weights reset to defaults")
	return nil
}
