/*
 *
 * Copyright 2026 Aeron authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paulexy/Aeron/logbuffer"
	"github.com/paulexy/Aeron/shm"
)

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name>",
		Short: "Print the layout and live state of a log buffer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			l, err := shm.OpenLog(cfg.Dir, args[0], shm.RoleConsumer)
			if err != nil {
				return err
			}
			defer l.Close()

			buf := l.Buffer
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-18s %s\n", "log:", l.Path())
			fmt.Fprintf(out, "%-18s %d bytes\n", "size:", l.Size())
			fmt.Fprintf(out, "%-18s %d bytes\n", "term length:", buf.TermLength())
			fmt.Fprintf(out, "%-18s %d\n", "initial term id:", buf.Log().InitialTermID())
			fmt.Fprintf(out, "%-18s %d\n", "active term id:", buf.Log().ActiveTermID())
			fmt.Fprintf(out, "%-18s %d\n", "producer position:", buf.ProducerPosition())
			fmt.Fprintln(out)

			active := buf.ActivePartitionIndex()
			w := tabwriter.NewWriter(out, 2, 0, 2, ' ', 0)
			fmt.Fprintln(w, "partition\tstatus\ttail\thigh-water\tposition")
			for i := 0; i < logbuffer.PartitionCount; i++ {
				marker := " "
				if i == active {
					marker = "*"
				}
				meta := buf.Meta(i)
				fmt.Fprintf(w, "%s%d\t%s\t%d\t%d\t%d\n",
					marker, i, meta.Status(), meta.Tail(), meta.HighWaterMark(), buf.Position(i))
			}
			return w.Flush()
		},
	}
}
