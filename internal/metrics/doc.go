// 版权所有 2026 Archon Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的任务执行指标采集能力，按 provider
与 agent 维度聚合任务完成情况。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离。
除 Prometheus 向量外，Collector 还维护一份按 provider 聚合的内存
快照，供控制 API 的 JSON /metrics 视图直接读取，与 Prometheus 视图
保持一致。

# 核心类型

  - Collector：指标收集器，持有任务完成计数、执行耗时 Histogram 与
    队列深度/活跃任务 Gauge。
  - ProviderSnapshot：单个 provider 的累计记录（总任务数、成功数、
    失败数、累计耗时、平均耗时）。

# 主要能力

  - 任务指标：按 provider/outcome 记录任务完成总数与执行耗时；按
    agent_id/outcome 记录单个 agent 的执行总数。
  - 队列指标：就绪队列深度与当前在执行的任务数 Gauge。
*/
package metrics
