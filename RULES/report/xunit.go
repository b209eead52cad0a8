package report

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/lrotava/stdcores/RULES/hdl"
)

type xunitFailure struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

type xunitSkipped struct {
	Message string `xml:"message,attr"`
}

type xunitTestCase struct {
	ClassName string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *xunitFailure `xml:"failure,omitempty"`
	Skipped   *xunitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type xunitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	ID        string          `xml:"id,attr,omitempty"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Errors    int             `xml:"errors,attr"`
	Time      string          `xml:"time,attr"`
	TestCases []xunitTestCase `xml:"testcase"`
}

// splitTestName splits lib.tb.case into the class name lib.tb and the case.
func splitTestName(name string) (string, string) {
	parts := strings.SplitN(name, ".", 3)
	if len(parts) < 3 {
		return "", name
	}
	return parts[0] + "." + parts[1], parts[2]
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// XUnit converts a run into an xUnit test suite document.
func XUnit(runID string, result hdl.RunResult) ([]byte, error) {
	suite := xunitTestSuite{
		Name:     "tbrun",
		ID:       runID,
		Tests:    len(result.Tests),
		Failures: result.Failed(),
		Skipped:  result.Skipped(),
		Time:     seconds(result.Duration),
	}
	for _, test := range result.Tests {
		class, name := splitTestName(test.Name)
		tc := xunitTestCase{ClassName: class, Name: name, Time: seconds(test.Duration)}
		switch test.Status {
		case hdl.StatusFail:
			tc.Failure = &xunitFailure{Message: "FAILED", Text: test.Output}
		case hdl.StatusSkip:
			tc.Skipped = &xunitSkipped{Message: "SKIPPED"}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode xunit report")
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}

// WriteXUnit writes the xUnit report of a run to path.
func WriteXUnit(path, runID string, result hdl.RunResult) error {
	data, err := XUnit(runID, result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
