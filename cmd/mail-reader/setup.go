package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Locolm/ai-mail-reader/internal/config"
	"github.com/spf13/cobra"
)

func newSetupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Check credentials and create a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := getConfigPath(opts.configPath)
			credPath := getCredentialsPath(opts.credentials, "")
			tokenPath := getTokenPath(opts.token, "")
			return runSetupWizard(cmd.InOrStdin(), cmd.OutOrStdout(), configPath, credPath, tokenPath)
		},
	}
}

// runSetupWizard reports what is missing and offers to write a default config
func runSetupWizard(in io.Reader, out io.Writer, configPath, credPath, tokenPath string) error {
	fmt.Fprintln(out, "Configuration de mail-reader")
	fmt.Fprintln(out, "============================")
	fmt.Fprintln(out)

	configExists := fileExists(configPath)
	if configExists {
		fmt.Fprintf(out, "Fichier de configuration présent : %s\n", configPath)
	} else {
		fmt.Fprintf(out, "Fichier de configuration à créer : %s\n", configPath)
	}

	if fileExists(credPath) {
		fmt.Fprintf(out, "Identifiants trouvés : %s\n", credPath)
	} else {
		fmt.Fprintf(out, "Identifiants manquants : %s\n", credPath)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Pour obtenir des identifiants Gmail API :")
		fmt.Fprintln(out, "1. Ouvrez https://console.cloud.google.com/")
		fmt.Fprintln(out, "2. Créez ou sélectionnez un projet")
		fmt.Fprintln(out, "3. Activez l'API Gmail")
		fmt.Fprintln(out, "4. Créez des identifiants OAuth 2.0 (application de bureau)")
		fmt.Fprintf(out, "5. Enregistrez le fichier JSON sous : %s\n", credPath)
		fmt.Fprintln(out)
	}

	if fileExists(tokenPath) {
		fmt.Fprintf(out, "Jeton présent : %s\n", tokenPath)
	} else {
		fmt.Fprintf(out, "Le jeton sera créé à la première connexion : %s\n", tokenPath)
	}

	if !configExists {
		fmt.Fprint(out, "\nCréer le fichier de configuration par défaut ? [O/n] : ")
		answer, _ := bufio.NewReader(in).ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "", "o", "oui", "y", "yes":
			if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
			fmt.Fprintf(out, "Configuration créée : %s\n", configPath)
		default:
			fmt.Fprintln(out, "Configuration non créée.")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Vous pouvez maintenant lancer : mail-reader")
	fmt.Fprintln(out, "Astuce : --keyboard pour taper les commandes, input_mode: voice pour les dire.")
	return nil
}
