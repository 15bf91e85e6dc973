// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// persistenceNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	persistenceNamespace = "persistence"

	opLabelName     = "op"
	statusLabelName = "status"

	SuccessLabel = "success"
	FailLabel    = "fail"
	// MissLabel 表示读取时文件不存在，既非成功也非失败。
	MissLabel = "miss"

	SaveLabel   = "save"
	LoadLabel   = "load"
	DeleteLabel = "delete"
)

var (
	// buckets 为操作耗时直方图的桶划分，单位为毫秒。
	// [1 2 4 8 16 32 64 128 256 512 1024 2048 4096 8192 16384 32768]
	buckets = prometheus.ExponentialBuckets(1, 2, 16)

	// sizeBuckets 为载荷大小的桶划分，单位为字节。
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 12)

	OperationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: persistenceNamespace,
			Name:      "operations_total",
			Help:      "存档读写删除操作次数",
		}, []string{opLabelName, statusLabelName})

	OperationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: persistenceNamespace,
			Name:      "operation_latency_milliseconds",
			Help:      "存档操作耗时",
			Buckets:   buckets,
		}, []string{opLabelName})

	PayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: persistenceNamespace,
			Name:      "payload_bytes",
			Help:      "写入或读取的存档文件大小",
			Buckets:   sizeBuckets,
		}, []string{opLabelName})

	metricRegisterer prometheus.Registerer
	registerOnce     sync.Once
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标，多次调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(OperationTotal)
		r.MustRegister(OperationLatency)
		r.MustRegister(PayloadBytes)
		metricRegisterer = r
	})
}

// Observe 记录一次操作的结果与耗时。
func Observe(op, status string, start time.Time) {
	OperationTotal.WithLabelValues(op, status).Inc()
	OperationLatency.WithLabelValues(op).Observe(float64(time.Since(start).Milliseconds()))
}

// ObservePayload 记录一次操作涉及的字节数。
func ObservePayload(op string, size int) {
	PayloadBytes.WithLabelValues(op).Observe(float64(size))
}
