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
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paulexy/Aeron/shm"
)

func newCreateCmd() *cobra.Command {
	var termLength int64

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a log buffer and initialize its stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if termLength == 0 {
				termLength = cfg.TermLength
			}
			if termLength < 0 || termLength > math.MaxInt32 {
				return fmt.Errorf("term length %d out of range", termLength)
			}

			l, err := shm.CreateLog(cfg.Dir, args[0], int32(termLength))
			if err != nil {
				return err
			}
			defer l.Close()

			logrus.WithFields(logrus.Fields{
				"path":            l.Path(),
				"size":            l.Size(),
				"term_length":     termLength,
				"initial_term_id": l.Buffer.Log().InitialTermID(),
			}).Info("created log")
			return nil
		},
	}
	cmd.Flags().Int64Var(&termLength, "term-length", 0, "term length in bytes (default from config)")
	return cmd
}
