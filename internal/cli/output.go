package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathanielng/kiro-telegram-bot/internal/deploy"
	"github.com/nathanielng/kiro-telegram-bot/internal/envfile"
)

var (
	outputJSON bool
)

var outputCmd = &cobra.Command{
	Use:   "output [name]",
	Short: "Show deploy outputs recorded in the env file",
	Long: `Reads the deploy outputs recorded in the env file.

If no name is given, all recorded outputs are displayed. If a name is
given, only that output's value is printed.`,
	RunE: runOutput,
}

func init() {
	outputCmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
}

func runOutput(cmd *cobra.Command, args []string) error {
	file, err := envfile.Load(envFile)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		name := args[0]
		val, ok := file.Get(name)
		if !ok {
			return fmt.Errorf("output %q not found", name)
		}
		if outputJSON {
			data, _ := json.Marshal(val)
			fmt.Println(string(data))
		} else {
			fmt.Println(val)
		}
		return nil
	}

	recorded := make(map[string]string)
	for _, key := range deploy.PersistedKeys {
		if val, ok := file.Get(key); ok {
			recorded[key] = val
		}
	}
	if len(recorded) == 0 {
		fmt.Println("No outputs recorded. Run deploy first.")
		return nil
	}

	if outputJSON {
		data, _ := json.MarshalIndent(recorded, "", "  ")
		fmt.Println(string(data))
		return nil
	}
	for _, key := range deploy.PersistedKeys {
		if val, ok := recorded[key]; ok {
			fmt.Printf("%s = %s\n", key, val)
		}
	}
	return nil
}
