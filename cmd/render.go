package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/killallgit/llt/pkg/config"
	"github.com/killallgit/llt/pkg/library"
	"github.com/killallgit/llt/pkg/metadata"
	"github.com/killallgit/llt/pkg/template"
)

var (
	templateName string
	contextFile  string
	langCode     string
	modelName    string
)

var renderCmd = &cobra.Command{
	Use:   "render [template files or directories...]",
	Short: "Render a text template",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := retrieveTemplate(args)
		if err != nil {
			return err
		}
		root, err := loadContextFile(contextFile)
		if err != nil {
			return err
		}
		switch tt := t.(type) {
		case *template.PromptTemplate:
			out, err := tt.Render(root)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		case *template.PlaintextTemplate:
			fmt.Fprintln(cmd.OutOrStdout(), tt.Content())
			return nil
		default:
			return fmt.Errorf("%q is a %s template; use 'llt messages'", templateName, tt.TemplateKind())
		}
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	addRenderFlags(renderCmd)
}

func addRenderFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&templateName, "template", "t", "", "template identifier (required)")
	cmd.Flags().StringVarP(&contextFile, "context", "x", "", "JSON or YAML context file")
	cmd.Flags().StringVar(&langCode, "lang", "", "language constraint (falls back across languages)")
	cmd.Flags().StringVar(&modelName, "model", "", "target model constraint")
	cmd.MarkFlagRequired("template")
}

// retrieveTemplate loads the given template sources and retrieves the best
// match for the identifier plus the language/model refinements. Retrieval
// is best-effort with language fallback, so a template without language
// metadata still answers a language-constrained request.
func retrieveTemplate(args []string) (template.Template, error) {
	if err := loadTemplates(args); err != nil {
		return nil, err
	}
	lang := langCode
	if lang == "" {
		lang = config.Get().Templates.DefaultLanguage
	}
	constraints := []metadata.Metadata{metadata.NewLanguage(lang)}
	if modelName != "" {
		constraints = append(constraints, metadata.TargetModel(modelName))
	}
	return library.Shared().RetrieveClosestWithFallback(library.Named(templateName, constraints...)...)
}

// loadContextFile reads the render context from a JSON or YAML file; with
// no file the context is null.
func loadContextFile(path string) (any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read context file: %w", err)
	}
	var root any
	if filepath.Ext(path) == ".json" {
		if err := json.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("invalid JSON context: %w", err)
		}
		return root, nil
	}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML context: %w", err)
	}
	return root, nil
}
