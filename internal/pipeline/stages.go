package pipeline

import (
	"fmt"
	"strings"
)

// Dataset selects the test or the train side of the pipeline.
type Dataset string

const (
	Test  Dataset = "test"
	Train Dataset = "train"
)

func ParseDataset(raw string) (Dataset, error) {
	switch Dataset(strings.ToLower(strings.TrimSpace(raw))) {
	case Test:
		return Test, nil
	case Train:
		return Train, nil
	default:
		return "", fmt.Errorf("dataset must be test or train (got %q)", raw)
	}
}

// Stage prefixes of the table store.
const (
	StageInputTest   = "input_test"
	StageInputTrain  = "input_train"
	StageIDTest      = "id_test"
	StageIDTrain     = "id_train"
	StagePreproTest  = "prepro_test"
	StagePreproTrain = "prepro_train"
	StagePair        = "pair"
	StageCalc        = "calc"
	StageOutput      = "output"

	stageSeparator = "__"
)

func InputStage(ds Dataset) string  { return "input_" + string(ds) }
func IDStage(ds Dataset) string     { return "id_" + string(ds) }
func PreproStage(ds Dataset) string { return "prepro_" + string(ds) }

// TableName joins a stage and a table into a store table name.
func TableName(stage, table string) string {
	return stage + stageSeparator + table
}

// SplitTableName is the inverse of TableName.
func SplitTableName(name string) (stage, table string, ok bool) {
	return strings.Cut(name, stageSeparator)
}

const (
	insideOutputSuffix  = "testdata_output"
	outsideOutputSuffix = "traindata_output"
)

// OutputTable names the result table of the position-th processed table
// (0-based): the first one gets the bare suffix, later ones are prefixed with
// their table name.
func OutputTable(suffix string, position int, table string) string {
	if position == 0 {
		return TableName(StageOutput, suffix)
	}
	return TableName(StageOutput, table+"_"+suffix)
}
