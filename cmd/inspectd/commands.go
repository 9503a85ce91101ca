package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/assure/inspectd/internal/api"
	"github.com/assure/inspectd/internal/config"
)

// --- lifecycle ---

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the inspectd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		foreground, _ := cmd.Flags().GetBool("foreground")
		if foreground {
			return runServer()
		}
		return startDetached()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running inspectd server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and conversation cache status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the inspection tools over MCP (stdio)",
	Long: `Serve the inspection tools over the Model Context Protocol on stdin/stdout.

The MCP process keeps its own conversation cache. Logs go to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logs := setupLogging(cfg.Log)
		defer logs.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		mcpSrv := api.NewMCPServer(api.MCPDeps{Service: a.service, Version: version})
		slog.Info("MCP server started (stdio transport)", "cache_capacity", cfg.Cache.Capacity)
		err = server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}

func init() {
	startCmd.Flags().Bool("foreground", false, "run in the foreground instead of detaching")
}

// --- reports ---

type uploadResult struct {
	ReportID   string `json:"report_id"`
	ShareToken string `json:"share_token"`
	Summary    string `json:"summary"`
	Address    string `json:"address"`
	Message    string `json:"message"`
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload an inspection report",
	Long: `Upload an inspection report PDF. The server extracts the text, writes a
summary and opens a conversation for follow-up questions.

Examples:
  inspectd upload ./report.pdf --address "12 Elm St, Springfield, IL 62704"
  inspectd upload ./report.pdf --customer-name "Sam Lee" --customer-email sam@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := map[string]string{}
		for _, name := range []string{"address", "customer-name", "customer-email", "customer-phone", "inspector-name", "report-type"} {
			v, _ := cmd.Flags().GetString(name)
			fields[strings.ReplaceAll(name, "-", "_")] = v
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Uploading %s...", args[0])
		resp, err := client.upload(cmd.Context(), "/api/upload", args[0], fields)
		if err != nil {
			return err
		}

		var result uploadResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("%s", result.Message)
		printField("Report", result.ReportID)
		printField("Share token", result.ShareToken)
		if result.Address != "" {
			printField("Address", result.Address)
		}
		fmt.Fprintf(stdout, "\n%s\n", result.Summary)
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("address", "", "property address")
	uploadCmd.Flags().String("customer-name", "", "customer name")
	uploadCmd.Flags().String("customer-email", "", "customer email")
	uploadCmd.Flags().String("customer-phone", "", "customer phone")
	uploadCmd.Flags().String("inspector-name", "", "inspector name")
	uploadCmd.Flags().String("report-type", "", "report type (default home_inspection)")
}

type askResult struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
	IssueType  string `json:"issue_type"`
	Referrals  []struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		Specialty string  `json:"specialty"`
		Rating    float64 `json:"rating"`
		Phone     string  `json:"phone"`
	} `json:"referrals"`
}

var askCmd = &cobra.Command{
	Use:   "ask <report-id> <question>",
	Short: "Ask a question about an uploaded report",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reportID := args[0]
		question := strings.Join(args[1:], " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/ask/"+url.PathEscape(reportID), map[string]string{"question": question})
		if err != nil {
			return err
		}

		var result askResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Fprintln(stdout, result.Answer)
		if result.IssueType != "general" && len(result.Referrals) > 0 {
			fmt.Fprintln(stdout)
			printField("Issue", result.IssueType)
			for _, r := range result.Referrals {
				fmt.Fprintf(stdout, "  %s  %s (%.1f★) %s\n", r.ID, r.Name, r.Rating, r.Phone)
			}
		}
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Show resident report conversations, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/cache-status")
		if err != nil {
			return err
		}

		var st struct {
			Size      int      `json:"size"`
			Capacity  int      `json:"capacity"`
			ReportIDs []string `json:"report_ids"`
		}
		if err := decodeJSON(resp, &st); err != nil {
			return err
		}

		printStatus("Resident", "%d/%d", st.Size, st.Capacity)
		for i, id := range st.ReportIDs {
			fmt.Fprintf(stdout, "%2d. %s\n", i+1, id)
		}
		return nil
	},
}

// --- contractors ---

var contractorsCmd = &cobra.Command{
	Use:   "contractors",
	Short: "Manage referral contractors",
}

var contractorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contractors",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/admin/contractors")
		if err != nil {
			return err
		}

		var result struct {
			Contractors []struct {
				ID        string  `json:"id"`
				Name      string  `json:"name"`
				Specialty string  `json:"specialty"`
				ZipCodes  string  `json:"zip_codes"`
				Rating    float64 `json:"rating"`
				IsActive  bool    `json:"is_active"`
			} `json:"contractors"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if len(result.Contractors) == 0 {
			printWarning("No contractors")
			return nil
		}

		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSPECIALTY\tZIPS\tRATING\tACTIVE")
		for _, c := range result.Contractors {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%t\n", c.ID, c.Name, c.Specialty, c.ZipCodes, c.Rating, c.IsActive)
		}
		return tw.Flush()
	},
}

var contractorsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a contractor",
	Long: `Add a contractor to the referral network.

Examples:
  inspectd contractors add --name "Bright Electric" --specialty electrical --zip-codes "62704,62701" --rating 4.8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		body := contractorBody(cmd)
		if _, ok := body["name"]; !ok {
			return fmt.Errorf("--name is required")
		}
		if _, ok := body["specialty"]; !ok {
			return fmt.Errorf("--specialty is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/admin/contractors", body)
		if err != nil {
			return err
		}

		var result struct {
			ContractorID string `json:"contractor_id"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Added contractor %s", result.ContractorID)
		return nil
	},
}

// contractorBody builds a request body from the flags the user actually set.
func contractorBody(cmd *cobra.Command) map[string]any {
	body := map[string]any{}
	flags := cmd.Flags()
	for _, name := range []string{"name", "specialty", "phone", "email", "zip-codes", "city", "state", "website", "description"} {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			body[strings.ReplaceAll(name, "-", "_")] = v
		}
	}
	for _, name := range []string{"rating", "cost-per-lead"} {
		if flags.Changed(name) {
			v, _ := flags.GetFloat64(name)
			body[strings.ReplaceAll(name, "-", "_")] = v
		}
	}
	for _, name := range []string{"licensed", "bonded", "insured"} {
		if flags.Changed(name) {
			v, _ := flags.GetBool(name)
			body["is_"+name] = v
		}
	}
	return body
}

var contractorsRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a contractor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/api/admin/contractors/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Removed contractor %s", args[0])
		return nil
	},
}

func init() {
	f := contractorsAddCmd.Flags()
	f.String("name", "", "business name")
	f.String("specialty", "", "one of electrical, plumbing, hvac, roofing, foundation, pest, general")
	f.String("phone", "", "phone number")
	f.String("email", "", "email address for lead notifications")
	f.String("zip-codes", "", "comma-separated ZIP codes served")
	f.String("city", "", "city")
	f.String("state", "", "state")
	f.String("website", "", "website")
	f.String("description", "", "short description")
	f.Float64("rating", 0, "rating out of 5")
	f.Float64("cost-per-lead", 0, "cost per lead in dollars")
	f.Bool("licensed", false, "contractor is licensed")
	f.Bool("bonded", false, "contractor is bonded")
	f.Bool("insured", false, "contractor is insured")

	contractorsCmd.AddCommand(contractorsListCmd)
	contractorsCmd.AddCommand(contractorsAddCmd)
	contractorsCmd.AddCommand(contractorsRemoveCmd)
}

// --- leads ---

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Review contractor leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/admin/leads")
		if err != nil {
			return err
		}

		var result struct {
			TotalLeads int `json:"total_leads"`
			Leads      []struct {
				ID             string `json:"id"`
				ContractorName string `json:"contractor_name"`
				IssueType      string `json:"issue_type"`
				CustomerName   string `json:"customer_name"`
				Status         string `json:"status"`
				CreatedAt      string `json:"created_at"`
			} `json:"leads"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if result.TotalLeads == 0 {
			printWarning("No leads")
			return nil
		}

		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCONTRACTOR\tISSUE\tCUSTOMER\tSTATUS\tCREATED")
		for _, l := range result.Leads {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", l.ID, l.ContractorName, l.IssueType, l.CustomerName, l.Status, l.CreatedAt)
		}
		return tw.Flush()
	},
}

var leadsSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Update a lead's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		body := map[string]string{"status": args[1]}
		if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
			body["notes"] = notes
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/api/admin/leads/"+url.PathEscape(args[0]), body)
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Lead %s is now %s", args[0], args[1])
		return nil
	},
}

func init() {
	leadsSetStatusCmd.Flags().String("notes", "", "notes to store on the lead")
	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsSetStatusCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(stdout, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key> [value]",
	Short: "Store a secret configuration value",
	Long: `Store a secret configuration value in the platform secret store.
If the value is omitted it is read from the first line of stdin.

Secret keys: ` + strings.Join(config.SecretKeys(), ", "),
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading secret from stdin: %w", err)
			}
			value = strings.TrimSpace(line)
		}
		if value == "" {
			return fmt.Errorf("empty value for %s", key)
		}

		if err := config.SetSecret(key, value); err != nil {
			return err
		}

		printSuccess("Stored %s", key)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}
