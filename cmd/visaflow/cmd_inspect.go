package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"visaflow/internal/browser"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Open the form and dump selector candidates for every field",
	Long: `Navigates to the configured form and prints a selector candidate for each
input, textarea, select and button on the page. Use this to build the
form_selectors map when the form markup changes.`,
	RunE: runInspect,
}

// inspectScript collects every form control with enough attributes to derive
// a stable selector.
const inspectScript = `(() => {
	const describe = el => ({
		tag: el.tagName.toLowerCase(),
		type: el.getAttribute('type') || "",
		name: el.getAttribute('name') || "",
		id: el.id || "",
		placeholder: (el.getAttribute('placeholder') || "").slice(0, 50),
		text: (el.innerText || "").trim().slice(0, 50),
		options: el.tagName === 'SELECT'
			? Array.from(el.options).slice(0, 4).map(o => o.text.trim())
			: undefined,
	});
	return {
		inputs: Array.from(document.querySelectorAll('input')).map(describe),
		textareas: Array.from(document.querySelectorAll('textarea')).map(describe),
		selects: Array.from(document.querySelectorAll('select')).map(describe),
		buttons: Array.from(document.querySelectorAll('button')).map(describe),
	};
})()`

type inspectedField struct {
	Tag         string   `json:"tag"`
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	ID          string   `json:"id"`
	Placeholder string   `json:"placeholder"`
	Text        string   `json:"text"`
	Options     []string `json:"options"`
}

type inspectedForm struct {
	Inputs    []inspectedField `json:"inputs"`
	Textareas []inspectedField `json:"textareas"`
	Selects   []inspectedField `json:"selects"`
	Buttons   []inspectedField `json:"buttons"`
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	session, err := browser.NewSession(cmd.Context(), cfg.Browser)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Navigate(cmd.Context(), cfg.URL); err != nil {
		return err
	}

	var form inspectedForm
	if err := session.Evaluate(cmd.Context(), inspectScript, &form); err != nil {
		return fmt.Errorf("inspect form: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Form: %s\n", cfg.URL)
	printFields(out, "INPUT FIELDS", form.Inputs)
	printFields(out, "TEXTAREA FIELDS", form.Textareas)
	printFields(out, "SELECT DROPDOWNS", form.Selects)
	printFields(out, "BUTTONS", form.Buttons)
	return nil
}

func printFields(out io.Writer, header string, fields []inspectedField) {
	fmt.Fprintf(out, "\n--- %s ---\n", header)
	for i, f := range fields {
		fmt.Fprintf(out, "%d. %s", i+1, f.Tag)
		if f.Type != "" {
			fmt.Fprintf(out, " type=%s", f.Type)
		}
		fmt.Fprintln(out)
		switch {
		case f.Name != "":
			fmt.Fprintf(out, "   selector: %s[name='%s']\n", f.Tag, f.Name)
		case f.ID != "":
			fmt.Fprintf(out, "   selector: #%s\n", f.ID)
		}
		if f.Placeholder != "" {
			fmt.Fprintf(out, "   placeholder: %s\n", f.Placeholder)
		}
		if f.Text != "" {
			fmt.Fprintf(out, "   text: %s\n", f.Text)
		}
		if len(f.Options) > 0 {
			fmt.Fprintf(out, "   options: %v\n", f.Options)
		}
	}
	if len(fields) == 0 {
		fmt.Fprintln(out, "(none)")
	}
}
