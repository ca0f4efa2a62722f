package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/matsen/btreeplay/internal/catalog"
	"github.com/matsen/btreeplay/internal/highlight"
	"github.com/spf13/cobra"
)

var (
	classifyStep   int
	classifyTarget string
)

func init() {
	classifyCmd.Flags().IntVar(&classifyStep, "step", 0, "Step to classify; negative counts from the end")
	classifyCmd.Flags().StringVar(&classifyTarget, "target", "", "Key id to treat as the target (default: the trace's target)")
	rootCmd.AddCommand(classifyCmd)
}

var classifyCmd = &cobra.Command{
	Use:   "classify <id|file>",
	Short: "Show the roles assigned to one step",
	Long: `Show the event tags of a step and the role given to every node and key.

Examples:
  btp classify tr-3f9a02c1 --step 3
  btp classify delete.json --step -1 --human`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

// KeyRoleResult is one key in a classify response.
type KeyRoleResult struct {
	Key  string         `json:"key"`
	Role highlight.Role `json:"role"`
}

// NodeRoleResult is one node in a classify response.
type NodeRoleResult struct {
	Signature catalog.Signature `json:"signature"`
	Depth     int               `json:"depth"`
	Role      highlight.Role    `json:"role"`
	Keys      []KeyRoleResult   `json:"keys"`
}

// ClassifyResponse is the JSON response for the classify command.
type ClassifyResponse struct {
	Step      int                 `json:"step"`
	Message   string              `json:"message"`
	Tags      []string            `json:"tags"`
	Focus     *catalog.Signature  `json:"focus,omitempty"`
	Ambiguous []catalog.Signature `json:"ambiguous,omitempty"`
	Nodes     []NodeRoleResult    `json:"nodes"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	l := mustLoadTrace(args[0])

	index, err := stepIndex(l.Trace, classifyStep, true)
	if err != nil {
		exitWithError(ExitNotFound, "%v", err)
	}
	step := l.Trace.Steps[index]
	resp := classifyStepRoles(step, targetFor(l.Trace, classifyTarget))
	resp.Step = index

	if humanOutput {
		printClassification(resp)
		return nil
	}
	return outputJSON(resp)
}

// classifyStepRoles lists nodes in pre-order with their roles.
func classifyStepRoles(step catalog.Step, target string) ClassifyResponse {
	cls := highlight.Classify(step, target)
	resp := ClassifyResponse{
		Message:   step.Message,
		Tags:      []string{},
		Ambiguous: cls.Ambiguous,
		Nodes:     []NodeRoleResult{},
	}
	for _, t := range cls.Tags.List() {
		resp.Tags = append(resp.Tags, t.String())
	}
	if cls.HasFocus {
		f := cls.Focus
		resp.Focus = &f
	}

	step.Tree.Walk(func(n *catalog.TreeNode, depth int) {
		sig := n.Signature()
		node := NodeRoleResult{Signature: sig, Depth: depth, Role: cls.NodeRole(sig), Keys: []KeyRoleResult{}}
		for _, k := range n.Keys {
			node.Keys = append(node.Keys, KeyRoleResult{Key: k.ID, Role: cls.KeyRole(sig, k.ID)})
		}
		resp.Nodes = append(resp.Nodes, node)
	})
	return resp
}

func printClassification(resp ClassifyResponse) {
	fmt.Printf("Step %d: %s\n", resp.Step, resp.Message)
	fmt.Printf("Tags: %s\n", strings.Join(resp.Tags, ", "))
	if resp.Focus != nil {
		fmt.Printf("Focus: [%s]\n", *resp.Focus)
	}
	if len(resp.Ambiguous) > 0 {
		fmt.Printf("Ambiguous signatures: %v\n", resp.Ambiguous)
	}
	fmt.Println()

	table := newTable(os.Stdout, "NODE", "ROLE", "KEYS")
	for _, n := range resp.Nodes {
		keys := make([]string, 0, len(n.Keys))
		for _, k := range n.Keys {
			if k.Role == highlight.RoleNone {
				keys = append(keys, k.Key)
			} else {
				keys = append(keys, fmt.Sprintf("%s(%s)", k.Key, k.Role))
			}
		}
		table.Append([]string{
			strings.Repeat("  ", n.Depth) + "[" + string(n.Signature) + "]",
			n.Role.String(),
			strings.Join(keys, " "),
		})
	}
	table.Render()
}
