// The alertgroupserver command groups anomalies and drives the groups through
// triage.
package main

import "go.skia.org/alertgroups/alertgroup/go/alertgroupserver/cmd"

func main() {
	cmd.Execute()
}
