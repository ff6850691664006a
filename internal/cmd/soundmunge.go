package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/zeromunge/internal/soundmunge"
)

var soundmungeCmd = &cobra.Command{
	Use:   "soundmunge <project-dir>",
	Short: "Generate a project's soundmunge.bat",
	Long: `Generate soundmunge.bat for a mod project from its Sound folder layout.

Without selection flags the folders and worlds already munged by the
existing soundmunge.bat are kept. The script is printed unless --write is
given.

Examples:
  # List the sound folders and which ones are munged
  zeromunge soundmunge C:\BF2_ModTools\data_ABC --list

  # Munge global and two worlds, and write the script
  zeromunge soundmunge C:\BF2_ModTools\data_ABC --folders global \
    --worlds abc,xyz --install-path "C:\Games\BF2" --write --force`,
	Args: cobra.ExactArgs(1),
	RunE: runSoundmunge,
}

var (
	smInstallPath string
	smProjectID   string
	smFolders     []string
	smWorlds      []string
	smAll         bool
	smList        bool
	smWrite       bool
	smForce       bool
)

func init() {
	rootCmd.AddCommand(soundmungeCmd)

	f := soundmungeCmd.Flags()
	f.StringVar(&smInstallPath, "install-path", "", "game install directory, the parent of GameData (required)")
	f.StringVar(&smProjectID, "project-id", "", "mod ID used in the addon path (default: from data_<ID> folder name)")
	f.StringSliceVar(&smFolders, "folders", nil, "common folders to munge: cw, gcw, global, shell")
	f.StringSliceVar(&smWorlds, "worlds", nil, "world folders to munge")
	f.BoolVar(&smAll, "all", false, "munge every folder and world found in the project")
	f.BoolVar(&smList, "list", false, "list the project's sound folders and exit")
	f.BoolVar(&smWrite, "write", false, "write soundmunge.bat into the project")
	f.BoolVar(&smForce, "force", false, "overwrite an existing soundmunge.bat")
}

func runSoundmunge(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	out := cmd.OutOrStdout()

	p, err := soundmunge.Scan(fs, args[0])
	if err != nil {
		return err
	}

	if smList {
		fmt.Fprintf(out, "Project %s (ID %s)\n", p.Dir, p.ID)
		for _, f := range p.Folders {
			fmt.Fprintf(out, "  [%s] %s\n", checkbox(f, p.EnabledFolders), f)
		}
		for _, w := range p.Worlds {
			fmt.Fprintf(out, "  [%s] worlds/%s\n", checkbox(w, p.EnabledWorlds), w)
		}
		return nil
	}

	opts := p.Options(smInstallPath)
	if smProjectID != "" {
		opts.ProjectID = smProjectID
	}
	switch {
	case smAll:
		opts.Folders = nil
		for _, f := range soundmunge.CommonFolders {
			if contains(p.Folders, f) {
				opts.Folders = append(opts.Folders, f)
			}
		}
		opts.Worlds = p.Worlds
	default:
		if cmd.Flags().Changed("folders") {
			opts.Folders = smFolders
		}
		if cmd.Flags().Changed("worlds") {
			opts.Worlds = smWorlds
		}
	}

	if !smWrite {
		text, err := soundmunge.Render(opts)
		if err != nil {
			return err
		}
		fmt.Fprint(out, strings.ReplaceAll(text, "\r\n", "\n"))
		return nil
	}

	if err := soundmunge.Write(fs, p, opts, smForce); err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %s\n", p.ScriptPath())
	return nil
}

func checkbox(name string, enabled []string) string {
	if contains(enabled, name) {
		return "x"
	}
	return " "
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
