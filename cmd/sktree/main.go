package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/TrevorS/sktree"
)

var (
	buildVersion          = "unknown"
	buildDate             = "unknown"
	cfgFile               string
	logLevel              string
	envPrefix             = "SKTREE"
	defaultConfigFileName = ".sktree"
	opts                  Options
)

// rootCmd represents the root command
var rootCmd = &cobra.Command{
	Use:   "sktree",
	Short: "Cluster tabular data with unsupervised decision trees and forests",
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit a tree or forest on a CSV file and write one cluster label per row",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFit(&opts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Route CSV rows through a saved model and write the leaf reached in every tree",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runApply(&opts, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\nBuild version: %s\nBuild date: %s\n",
			filepath.Base(os.Args[0]), buildVersion, buildDate)
	},
}

// initConfig use config file and ENV variables if set.
func initConfig() {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatal(err)
		}
		// Search config in home directory with name ".sktree" (without extension).
		v.AddConfigPath(home)
		v.SetConfigName(defaultConfigFileName)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfgErr := v.ReadInConfig()

	bindFlags(rootCmd, v)
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, v)
	}

	initLogger()

	if cfgErr != nil && cfgFile != "" {
		log.Errorf("Read config error: %v", cfgErr)
	}
}

func initLogger() {
	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		ll = log.ErrorLevel
	}
	log.SetLevel(ll)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{DisableColors: false, FullTimestamp: true, PadLevelText: true, DisableQuote: true})
}

func dumpConfig(w io.Writer, o *Options) error {
	out, err := yaml.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "dumping config")
	}
	_, err = fmt.Fprintf(w, "Using configuration:\n%s\n", out)
	return err
}

func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if strings.Contains(f.Name, ".") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, ".", "_"))
			_ = v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix))
		}

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			switch val.(type) {
			case bool, uint, string, int32, int16, int8, int, uint32, uint64, int64, float64, float32, []string, []int:
				_ = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
			default:
				var jsonNew = jsoniter.ConfigCompatibleWithStandardLibrary
				b, err := jsonNew.Marshal(&val)
				if err != nil {
					log.Fatalf("can't parse flag %s into json with value %v got error %s", f.Name, val, err)
					return
				}
				_ = cmd.Flags().Set(f.Name, string(b))
			}
		}
	})
}

func addTreeFlags(fs *pflag.FlagSet, o *TreeOptions) {
	def := sktree.DefaultConfig()
	fs.StringVar(&o.Criterion, "tree.criterion", string(def.Criterion), "Split criterion: twomeans, fastbic")
	fs.StringVar(&o.Splitter, "tree.splitter", string(def.Splitter), "Threshold search: best, random (axis-aligned trees only)")
	fs.BoolVar(&o.Oblique, "tree.oblique", false, "Split on sparse random projections instead of single features")
	fs.IntVar(&o.MaxDepth, "tree.maxDepth", def.MaxDepth, "Maximum tree depth (0: unlimited)")
	fs.IntVar(&o.MinSamplesSplit, "tree.minSamplesSplit", def.MinSamplesSplit, "Minimum samples required to split a node")
	fs.IntVar(&o.MinSamplesLeaf, "tree.minSamplesLeaf", def.MinSamplesLeaf, "Minimum samples in each leaf")
	fs.Float64Var(&o.MinWeightFractionLeaf, "tree.minWeightFractionLeaf", def.MinWeightFractionLeaf, "Minimum fraction of the total weight in each leaf")
	fs.IntVar(&o.MaxFeatures, "tree.maxFeatures", def.MaxFeatures, "Candidates per node (0: use tree.maxFeaturesRule)")
	fs.StringVar(&o.MaxFeaturesRule, "tree.maxFeaturesRule", string(def.MaxFeaturesRule), "Candidates per node when tree.maxFeatures is 0: all, sqrt, log2 (default: all for a tree, sqrt for a forest)")
	fs.IntVar(&o.MaxLeafNodes, "tree.maxLeafNodes", def.MaxLeafNodes, "Grow best-first up to this many leaves (0: unlimited, depth-first)")
	fs.Float64Var(&o.MinImpurityDecrease, "tree.minImpurityDecrease", def.MinImpurityDecrease, "Minimum weighted impurity decrease to split")
	fs.Float64Var(&o.FeatureCombinations, "tree.featureCombinations", def.FeatureCombinations, "Average features per oblique projection")
	fs.Int64Var(&o.RandomState, "tree.randomState", def.RandomState, "Seed for feature sampling and bootstrapping")
	fs.IntVar(&o.Clusters, "tree.clusters", 2, "Number of clusters cut from the affinity matrix")
	fs.StringVar(&o.Linkage, "tree.linkage", "ward", "Agglomerative linkage: ward, complete, average, single")
	fs.IntVar(&o.Workers, "tree.workers", runtime.NumCPU(), "Goroutines used for forests and large inputs")
}

func initFlags() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", fmt.Sprintf("config file (default is $HOME/%s)", defaultConfigFileName))
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "Log level: debug, info, warning, error")
	rootCmd.PersistentFlags().StringVar(&opts.Input, "input", "-", "CSV file of numeric rows (- for stdin)")
	rootCmd.PersistentFlags().BoolVar(&opts.Header, "header", false, "Skip the first CSV record")
	rootCmd.PersistentFlags().StringVar(&opts.Output, "output", "-", "Output CSV file (- for stdout)")
	rootCmd.PersistentFlags().StringVar(&opts.Model, "model", "", "Model JSON file (written by fit, read by apply)")

	fitCmd.Flags().StringVar(&opts.MetricsFile, "metricsFile", "", "Write build metrics in Prometheus text format to this file")
	fitCmd.Flags().BoolVar(&opts.DumpConfig, "dumpConfig", false, "Print the effective configuration as YAML to stderr")
	fitCmd.Flags().BoolVar(&opts.Forest.Enabled, "forest.enabled", false, "Fit a random forest instead of a single tree")
	fitCmd.Flags().IntVar(&opts.Forest.NEstimators, "forest.nEstimators", 100, "Number of trees in the forest")
	fitCmd.Flags().BoolVar(&opts.Forest.Bootstrap, "forest.bootstrap", true, "Fit each forest tree on a bootstrap resample")
	addTreeFlags(fitCmd.Flags(), &opts.Tree)

	rootCmd.AddCommand(fitCmd, applyCmd, versionCmd)
}

func main() {
	initFlags()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// fitted is the common view of a fitted tree or forest.
type fitted struct {
	trees  []*sktree.Tree
	labels []int
}

func fit(o *Options, X [][]float64, metrics *sktree.Metrics) (*fitted, error) {
	if o.Forest.Enabled {
		cfg := o.toForestConfig()
		cfg.Metrics = metrics
		var forest *sktree.UnsupervisedRandomForest
		if o.Tree.Oblique {
			f, err := sktree.NewUnsupervisedObliqueRandomForest(cfg)
			if err != nil {
				return nil, err
			}
			forest = &f.UnsupervisedRandomForest
		} else {
			f, err := sktree.NewUnsupervisedRandomForest(cfg)
			if err != nil {
				return nil, err
			}
			forest = f
		}
		if err := forest.Fit(X, nil); err != nil {
			return nil, err
		}
		return &fitted{trees: forest.Estimators, labels: forest.Labels}, nil
	}

	cfg := o.Tree.toConfig()
	cfg.Metrics = metrics
	var est *sktree.UnsupervisedDecisionTree
	if o.Tree.Oblique {
		e, err := sktree.NewUnsupervisedObliqueDecisionTree(cfg)
		if err != nil {
			return nil, err
		}
		est = &e.UnsupervisedDecisionTree
	} else {
		e, err := sktree.NewUnsupervisedDecisionTree(cfg)
		if err != nil {
			return nil, err
		}
		est = e
	}
	if err := est.Fit(X, nil); err != nil {
		return nil, err
	}
	return &fitted{trees: []*sktree.Tree{est.Tree}, labels: est.Labels}, nil
}

func runFit(o *Options, stdin io.Reader, stdout io.Writer) error {
	if o.DumpConfig {
		if err := dumpConfig(os.Stderr, o); err != nil {
			return err
		}
	}

	X, err := loadMatrix(o.Input, o.Header, stdin)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	result, err := fit(o, X, sktree.NewMetrics(reg))
	if err != nil {
		return errors.WithMessage(err, "fitting")
	}

	leaves := 0
	for _, t := range result.trees {
		leaves += t.LeafCount()
	}
	log.WithFields(log.Fields{
		"samples": len(X),
		"trees":   len(result.trees),
		"leaves":  leaves,
	}).Info("model fitted")

	if result.labels == nil {
		log.Warn("fewer than 2 samples, no labels written")
	}
	rows := make([][]int, len(result.labels))
	for i, l := range result.labels {
		rows[i] = []int{l}
	}
	if err := writeOutput(o.Output, stdout, rows); err != nil {
		return err
	}

	if o.Model != "" {
		if err := saveModel(o.Model, result.trees); err != nil {
			return err
		}
	}
	if o.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(o.MetricsFile, reg); err != nil {
			return errors.Wrap(err, "writing metrics")
		}
	}
	return nil
}

func runApply(o *Options, stdin io.Reader, stdout io.Writer) error {
	if o.Model == "" {
		return errors.New("apply needs --model")
	}
	f, err := os.Open(o.Model)
	if err != nil {
		return errors.Wrap(err, "opening model")
	}
	defer f.Close()
	trees, err := sktree.LoadTrees(f)
	if err != nil {
		return err
	}

	X, err := loadMatrix(o.Input, o.Header, stdin)
	if err != nil {
		return err
	}

	rows := make([][]int, len(X))
	for i := range rows {
		rows[i] = make([]int, len(trees))
	}
	for t, tree := range trees {
		leaves, err := tree.ApplyParallel(X, max(o.Tree.Workers, 1))
		if err != nil {
			return errors.WithMessagef(err, "tree %d", t)
		}
		for i, leaf := range leaves {
			rows[i][t] = leaf
		}
	}
	log.WithFields(log.Fields{"samples": len(X), "trees": len(trees)}).Info("rows applied")
	return writeOutput(o.Output, stdout, rows)
}

func loadMatrix(path string, header bool, stdin io.Reader) ([][]float64, error) {
	if path == "" || path == "-" {
		return readMatrix(stdin, header)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening input")
	}
	defer f.Close()
	return readMatrix(f, header)
}

func writeOutput(path string, stdout io.Writer, rows [][]int) error {
	if path == "" || path == "-" {
		return writeInts(stdout, rows)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output")
	}
	if err := writeInts(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveModel(path string, trees []*sktree.Tree) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating model")
	}
	if err := sktree.SaveTrees(f, trees); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
